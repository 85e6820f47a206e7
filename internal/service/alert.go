package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auditflow/backend/internal/model"
)

type AlertRepo interface {
	GetAlertByID(ctx context.Context, userID, alertID uuid.UUID) (*model.Alert, error)
	CountAlerts(ctx context.Context, filter model.AlertFilter) (int, error)
	ListAlerts(ctx context.Context, filter model.AlertFilter, limit, offset int) ([]model.Alert, error)
	SaveAlertStatus(ctx context.Context, alert *model.Alert) error
	GetAlertStats(ctx context.Context, userID uuid.UUID) (*model.AlertStats, error)
}

// AlertService owns the alert lifecycle. Alerts are created by the
// rule engine consuming the event stream; this service only reads them
// and applies status transitions, always scoped through the
// User > ApiKey > Event > Alert ownership chain.
type AlertService struct {
	repo AlertRepo
	now  func() time.Time
}

func NewAlertService(repo AlertRepo) *AlertService {
	return &AlertService{repo: repo, now: time.Now}
}

// transitionAlert mutates status and lifecycle timestamps.
// acknowledged_at is stamped only when the prior status is exactly
// open; resolved_at is stamped on every transition into resolved,
// including repeated resolves.
func transitionAlert(alert *model.Alert, status model.AlertStatus, now time.Time) {
	if status == model.AlertStatusAcknowledged && alert.Status == model.AlertStatusOpen {
		alert.AcknowledgedAt = &now
	}
	if status == model.AlertStatusResolved {
		alert.ResolvedAt = &now
	}
	alert.Status = status
	alert.UpdatedAt = now
}

type AlertListRequest struct {
	Page     int
	PageSize int
	Filter   model.AlertFilter
}

func (s *AlertService) List(ctx context.Context, req AlertListRequest) (*model.AlertList, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	total, err := s.repo.CountAlerts(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	alerts, err := s.repo.ListAlerts(ctx, req.Filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]model.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, alerts[i].Response())
	}

	return &model.AlertList{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *AlertService) Get(ctx context.Context, userID, alertID uuid.UUID) (*model.Alert, error) {
	alert, err := s.repo.GetAlertByID(ctx, userID, alertID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return alert, nil
}

// UpdateStatus applies a lifecycle transition to an owned alert.
func (s *AlertService) UpdateStatus(ctx context.Context, userID, alertID uuid.UUID, status model.AlertStatus) (*model.Alert, error) {
	if !status.Valid() {
		return nil, ErrInvalidInput
	}

	alert, err := s.repo.GetAlertByID(ctx, userID, alertID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	transitionAlert(alert, status, s.now().UTC())

	if err := s.repo.SaveAlertStatus(ctx, alert); err != nil {
		return nil, err
	}

	log.Info().
		Str("alert_id", alertID.String()).
		Str("new_status", string(status)).
		Str("user_id", userID.String()).
		Msg("alert status updated")

	return alert, nil
}

func (s *AlertService) Stats(ctx context.Context, userID uuid.UUID) (*model.AlertStats, error) {
	return s.repo.GetAlertStats(ctx, userID)
}
