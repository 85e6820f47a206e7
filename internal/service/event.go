package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auditflow/backend/internal/client"
	"github.com/auditflow/backend/internal/model"
)

type EventRepo interface {
	InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error)
	GetEventByID(ctx context.Context, userID, eventID uuid.UUID) (*model.Event, error)
	CountEvents(ctx context.Context, filter model.EventFilter) (int, error)
	ListEvents(ctx context.Context, filter model.EventFilter, limit, offset int) ([]model.Event, error)
	GetEventStats(ctx context.Context, userID uuid.UUID, todayStart, weekStart time.Time) (*model.EventStats, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event client.StreamEvent) (string, error)
}

type EventService struct {
	repo EventRepo
	bus  EventPublisher
	now  func() time.Time
}

func NewEventService(repo EventRepo, bus EventPublisher) *EventService {
	return &EventService{repo: repo, bus: bus, now: time.Now}
}

// Ingest persists the event and then publishes it to the stream. The
// relational write is the source of truth: a publish failure is logged
// and swallowed, so a committed event always reports success even when
// the stream backend is down.
func (s *EventService) Ingest(ctx context.Context, key *model.ApiKey, req model.EventCreateRequest) (*model.Event, error) {
	severity := req.Severity
	if severity == "" {
		severity = model.SeverityInfo
	}

	timestamp := s.now().UTC()
	if req.Timestamp != nil {
		timestamp = req.Timestamp.UTC()
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	event, err := s.repo.InsertEvent(ctx, &model.Event{
		EventType: req.EventType,
		Severity:  severity,
		Source:    req.Source,
		Payload:   payload,
		Timestamp: timestamp,
		ApiKeyID:  key.ID,
	})
	if err != nil {
		return nil, err
	}

	s.publish(event)

	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("severity", string(event.Severity)).
		Str("key_prefix", key.KeyPrefix).
		Msg("event created")

	return event, nil
}

// publish is fire-and-forget with its own deadline: the row is already
// committed, so request cancellation must not be able to turn a
// successful ingestion into a failure.
func (s *EventService) publish(event *model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.bus.Publish(ctx, client.StreamEvent{
		EventID:   event.ID,
		EventType: event.EventType,
		Severity:  string(event.Severity),
		Source:    event.Source,
		Payload:   event.Payload,
		ApiKeyID:  event.ApiKeyID,
		Timestamp: event.Timestamp,
	}); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("stream publish failed, event remains queryable")
	}
}

type EventListRequest struct {
	Page     int
	PageSize int
	Filter   model.EventFilter
}

func (s *EventService) List(ctx context.Context, req EventListRequest) (*model.EventList, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	total, err := s.repo.CountEvents(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListEvents(ctx, req.Filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]model.EventResponse, 0, len(events))
	for i := range events {
		items = append(items, events[i].Response())
	}

	return &model.EventList{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *EventService) Get(ctx context.Context, userID, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.repo.GetEventByID(ctx, userID, eventID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) Stats(ctx context.Context, userID uuid.UUID) (*model.EventStats, error) {
	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// Week starts Monday.
	weekday := (int(todayStart.Weekday()) + 6) % 7
	weekStart := todayStart.AddDate(0, 0, -weekday)

	return s.repo.GetEventStats(ctx, userID, todayStart, weekStart)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
