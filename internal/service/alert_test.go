package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditflow/backend/internal/model"
)

type fakeAlertRepo struct {
	alerts map[uuid.UUID]*model.Alert
	owner  uuid.UUID
}

func newFakeAlertRepo(owner uuid.UUID) *fakeAlertRepo {
	return &fakeAlertRepo{alerts: map[uuid.UUID]*model.Alert{}, owner: owner}
}

func (f *fakeAlertRepo) GetAlertByID(ctx context.Context, userID, alertID uuid.UUID) (*model.Alert, error) {
	if userID != f.owner {
		return nil, pgx.ErrNoRows
	}
	if alert, ok := f.alerts[alertID]; ok {
		copied := *alert
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAlertRepo) CountAlerts(ctx context.Context, filter model.AlertFilter) (int, error) {
	if filter.UserID != f.owner {
		return 0, nil
	}
	return len(f.alerts), nil
}

func (f *fakeAlertRepo) ListAlerts(ctx context.Context, filter model.AlertFilter, limit, offset int) ([]model.Alert, error) {
	if filter.UserID != f.owner {
		return []model.Alert{}, nil
	}
	var out []model.Alert
	for _, alert := range f.alerts {
		out = append(out, *alert)
	}
	if out == nil {
		out = []model.Alert{}
	}
	return out, nil
}

func (f *fakeAlertRepo) SaveAlertStatus(ctx context.Context, alert *model.Alert) error {
	stored := *alert
	f.alerts[alert.ID] = &stored
	return nil
}

func (f *fakeAlertRepo) GetAlertStats(ctx context.Context, userID uuid.UUID) (*model.AlertStats, error) {
	return &model.AlertStats{TotalAlerts: len(f.alerts)}, nil
}

func openAlert() *model.Alert {
	return &model.Alert{
		ID:       uuid.New(),
		Title:    "failed logins spike",
		Level:    model.AlertLevelHigh,
		Status:   model.AlertStatusOpen,
		RuleName: "failed-login-burst",
		EventID:  uuid.New(),
	}
}

func newTestAlertService(repo AlertRepo, now time.Time) *AlertService {
	svc := NewAlertService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAcknowledgeStampsOnce(t *testing.T) {
	owner := uuid.New()
	repo := newFakeAlertRepo(owner)
	alert := openAlert()
	repo.alerts[alert.ID] = alert

	first := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := newTestAlertService(repo, first)

	updated, err := svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusAcknowledged)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != model.AlertStatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", updated.Status)
	}
	if updated.AcknowledgedAt == nil || !updated.AcknowledgedAt.Equal(first) {
		t.Fatalf("expected acknowledged_at = %v, got %v", first, updated.AcknowledgedAt)
	}

	// Re-acknowledging must not re-stamp.
	later := first.Add(time.Hour)
	svc.now = func() time.Time { return later }
	updated, err = svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusAcknowledged)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !updated.AcknowledgedAt.Equal(first) {
		t.Fatalf("acknowledged_at must keep the original stamp, got %v", updated.AcknowledgedAt)
	}
}

func TestResolveStampsEveryCall(t *testing.T) {
	owner := uuid.New()
	repo := newFakeAlertRepo(owner)
	alert := openAlert()
	repo.alerts[alert.ID] = alert

	first := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := newTestAlertService(repo, first)

	updated, err := svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusResolved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(first) {
		t.Fatalf("expected resolved_at = %v, got %v", first, updated.ResolvedAt)
	}

	// Resolving again refreshes the stamp.
	later := first.Add(time.Hour)
	svc.now = func() time.Time { return later }
	updated, err = svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusResolved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !updated.ResolvedAt.Equal(later) {
		t.Fatalf("resolved_at must refresh on every resolve, got %v", updated.ResolvedAt)
	}
}

func TestResolveDirectlyFromOpen(t *testing.T) {
	owner := uuid.New()
	repo := newFakeAlertRepo(owner)
	alert := openAlert()
	repo.alerts[alert.ID] = alert

	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := newTestAlertService(repo, now)

	updated, err := svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusResolved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.AcknowledgedAt != nil {
		t.Fatalf("direct resolve must not stamp acknowledged_at")
	}
	if updated.ResolvedAt == nil {
		t.Fatalf("expected resolved_at set")
	}
}

func TestAcknowledgeAfterResolveKeepsTimestampUnset(t *testing.T) {
	owner := uuid.New()
	repo := newFakeAlertRepo(owner)
	alert := openAlert()
	alert.Status = model.AlertStatusResolved
	repo.alerts[alert.ID] = alert

	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := newTestAlertService(repo, now)

	// Status assignment happens, but the timestamp write is gated on
	// the prior state being exactly open.
	updated, err := svc.UpdateStatus(context.Background(), owner, alert.ID, model.AlertStatusAcknowledged)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != model.AlertStatusAcknowledged {
		t.Fatalf("expected status assignment, got %s", updated.Status)
	}
	if updated.AcknowledgedAt != nil {
		t.Fatalf("acknowledged_at must not be stamped from a non-open state")
	}
}

func TestUpdateStatusScoping(t *testing.T) {
	owner := uuid.New()
	repo := newFakeAlertRepo(owner)
	alert := openAlert()
	repo.alerts[alert.ID] = alert

	svc := newTestAlertService(repo, time.Now())

	// Another user with the real alert id gets NotFound, never
	// Forbidden: existence must not leak.
	stranger := uuid.New()
	if _, err := svc.UpdateStatus(context.Background(), stranger, alert.ID, model.AlertStatusResolved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	svc := newTestAlertService(newFakeAlertRepo(uuid.New()), time.Now())
	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), "escalated"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
