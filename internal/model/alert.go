package model

import (
	"time"

	"github.com/google/uuid"
)

type AlertLevel string

const (
	AlertLevelLow      AlertLevel = "low"
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

func (l AlertLevel) Valid() bool {
	switch l {
	case AlertLevelLow, AlertLevelMedium, AlertLevelHigh, AlertLevelCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "open"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusAcknowledged, AlertStatusResolved:
		return true
	}
	return false
}

// Alert is bound to exactly one Event. acknowledged_at is stamped only
// on the open→acknowledged transition; resolved_at is stamped on every
// transition into resolved.
type Alert struct {
	ID             uuid.UUID
	Title          string
	Description    *string
	Level          AlertLevel
	Status         AlertStatus
	RuleName       string
	EventID        uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

type AlertUpdateRequest struct {
	Status AlertStatus `json:"status" binding:"required,oneof=open acknowledged resolved"`
}

type AlertResponse struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	Description    *string     `json:"description"`
	Level          AlertLevel  `json:"level"`
	Status         AlertStatus `json:"status"`
	RuleName       string      `json:"rule_name"`
	EventID        uuid.UUID   `json:"event_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at"`
	ResolvedAt     *time.Time  `json:"resolved_at"`
}

type AlertList struct {
	Items      []AlertResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// AlertFilter narrows alert listings, always scoped to UserID through
// the owning event's key.
type AlertFilter struct {
	UserID    uuid.UUID
	Level     AlertLevel
	Status    AlertStatus
	RuleName  string
	StartDate *time.Time
	EndDate   *time.Time
}

type AlertStats struct {
	TotalAlerts        int            `json:"total_alerts"`
	OpenAlerts         int            `json:"open_alerts"`
	AcknowledgedAlerts int            `json:"acknowledged_alerts"`
	ResolvedAlerts     int            `json:"resolved_alerts"`
	AlertsByLevel      map[string]int `json:"alerts_by_level"`
}

func (a *Alert) Response() AlertResponse {
	return AlertResponse{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		Level:          a.Level,
		Status:         a.Status,
		RuleName:       a.RuleName,
		EventID:        a.EventID,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
	}
}
