package model

import (
	"time"

	"github.com/google/uuid"
)

type EventSeverity string

const (
	SeverityDebug    EventSeverity = "debug"
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

func (s EventSeverity) Valid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Event is immutable once persisted. It belongs to exactly one ApiKey
// and is visible only to the user owning that key.
type Event struct {
	ID        uuid.UUID
	EventType string
	Severity  EventSeverity
	Source    string
	Payload   map[string]any
	Timestamp time.Time
	CreatedAt time.Time
	ApiKeyID  uuid.UUID
}

type EventCreateRequest struct {
	EventType string         `json:"event_type" binding:"required,min=1,max=50"`
	Severity  EventSeverity  `json:"severity" binding:"omitempty,oneof=debug info warning error critical"`
	Source    string         `json:"source" binding:"required,min=1,max=100"`
	Payload   map[string]any `json:"payload"`
	Timestamp *time.Time     `json:"timestamp"`
}

type EventResponse struct {
	ID        uuid.UUID      `json:"id"`
	EventType string         `json:"event_type"`
	Severity  EventSeverity  `json:"severity"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`
	ApiKeyID  uuid.UUID      `json:"api_key_id"`
}

type EventList struct {
	Items      []EventResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// EventFilter narrows event listings. UserID is mandatory: every query
// is scoped to the requesting user's keys.
type EventFilter struct {
	UserID    uuid.UUID
	EventType string
	Severity  EventSeverity
	Source    string
	StartDate *time.Time
	EndDate   *time.Time
	ApiKeyID  *uuid.UUID
}

type EventStats struct {
	TotalEvents      int            `json:"total_events"`
	EventsByType     map[string]int `json:"events_by_type"`
	EventsBySeverity map[string]int `json:"events_by_severity"`
	EventsToday      int            `json:"events_today"`
	EventsThisWeek   int            `json:"events_this_week"`
}

func (e *Event) Response() EventResponse {
	return EventResponse{
		ID:        e.ID,
		EventType: e.EventType,
		Severity:  e.Severity,
		Source:    e.Source,
		Payload:   e.Payload,
		Timestamp: e.Timestamp,
		CreatedAt: e.CreatedAt,
		ApiKeyID:  e.ApiKeyID,
	}
}
