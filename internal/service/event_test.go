package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditflow/backend/internal/client"
	"github.com/auditflow/backend/internal/model"
)

type fakeEventRepo struct {
	events []model.Event
}

func (f *fakeEventRepo) InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	stored := *event
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()
	f.events = append(f.events, stored)
	return &stored, nil
}

func (f *fakeEventRepo) GetEventByID(ctx context.Context, userID, eventID uuid.UUID) (*model.Event, error) {
	for i := range f.events {
		if f.events[i].ID == eventID {
			return &f.events[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeEventRepo) CountEvents(ctx context.Context, filter model.EventFilter) (int, error) {
	return len(f.events), nil
}

func (f *fakeEventRepo) ListEvents(ctx context.Context, filter model.EventFilter, limit, offset int) ([]model.Event, error) {
	if offset >= len(f.events) {
		return []model.Event{}, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return f.events[offset:end], nil
}

func (f *fakeEventRepo) GetEventStats(ctx context.Context, userID uuid.UUID, todayStart, weekStart time.Time) (*model.EventStats, error) {
	return &model.EventStats{TotalEvents: len(f.events)}, nil
}

type fakeBus struct {
	published []client.StreamEvent
	err       error
}

func (f *fakeBus) Publish(ctx context.Context, event client.StreamEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, event)
	return "1-0", nil
}

func testKey() *model.ApiKey {
	return &model.ApiKey{ID: uuid.New(), KeyPrefix: "af_test123", IsActive: true}
}

func TestIngestPersistsAndPublishes(t *testing.T) {
	repo := &fakeEventRepo{}
	bus := &fakeBus{}
	svc := NewEventService(repo, bus)

	event, err := svc.Ingest(context.Background(), testKey(), model.EventCreateRequest{
		EventType: "login",
		Severity:  model.SeverityInfo,
		Source:    "svc1",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if event.ID == uuid.Nil {
		t.Fatalf("expected assigned id")
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected one stored event")
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one published record")
	}
	if bus.published[0].EventID != event.ID {
		t.Fatalf("published record must carry the stored event id")
	}
}

func TestIngestSucceedsWhenStreamDown(t *testing.T) {
	repo := &fakeEventRepo{}
	bus := &fakeBus{err: errors.New("connection refused")}
	svc := NewEventService(repo, bus)

	event, err := svc.Ingest(context.Background(), testKey(), model.EventCreateRequest{
		EventType: "login",
		Source:    "svc1",
	})
	if err != nil {
		t.Fatalf("publish failure must not fail ingestion: %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatalf("the row is the source of truth and must be stored")
	}
	if event.Severity != model.SeverityInfo {
		t.Fatalf("expected default severity info, got %s", event.Severity)
	}
}

func TestIngestTimestampResolution(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventService(repo, &fakeBus{})
	fixed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	event, err := svc.Ingest(context.Background(), testKey(), model.EventCreateRequest{
		EventType: "login",
		Source:    "svc1",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !event.Timestamp.Equal(fixed) {
		t.Fatalf("expected server time %v, got %v", fixed, event.Timestamp)
	}

	supplied := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	event, err = svc.Ingest(context.Background(), testKey(), model.EventCreateRequest{
		EventType: "login",
		Source:    "svc1",
		Timestamp: &supplied,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !event.Timestamp.Equal(supplied) {
		t.Fatalf("caller-supplied timestamp must win, got %v", event.Timestamp)
	}
}

func TestListPagination(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventService(repo, &fakeBus{})
	key := testKey()
	for i := 0; i < 7; i++ {
		if _, err := svc.Ingest(context.Background(), key, model.EventCreateRequest{
			EventType: "login",
			Source:    "svc1",
		}); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	list, err := svc.List(context.Background(), EventListRequest{Page: 1, PageSize: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 7 || list.TotalPages != 3 {
		t.Fatalf("expected total=7 total_pages=3, got %d/%d", list.Total, list.TotalPages)
	}
	if len(list.Items) != 3 {
		t.Fatalf("expected full first page, got %d", len(list.Items))
	}

	// Page beyond range: empty items, correct total.
	list, err = svc.List(context.Background(), EventListRequest{Page: 5, PageSize: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Items) != 0 || list.Total != 7 {
		t.Fatalf("expected empty page with total=7, got %d items total=%d", len(list.Items), list.Total)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, size, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
	}
	for _, tc := range cases {
		if got := totalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("totalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	page, size := normalizePage(0, 0)
	if page != 1 || size != 20 {
		t.Fatalf("expected defaults 1/20, got %d/%d", page, size)
	}
	_, size = normalizePage(1, 500)
	if size != 100 {
		t.Fatalf("expected page size capped at 100, got %d", size)
	}
}

func TestGetEventNotFound(t *testing.T) {
	svc := NewEventService(&fakeEventRepo{}, &fakeBus{})
	if _, err := svc.Get(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
