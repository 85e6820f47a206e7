package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
	"github.com/auditflow/backend/internal/service"
)

type AlertHandler struct {
	svc *service.AlertService
}

func NewAlertHandler(svc *service.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// List godoc
// @Summary List alerts
// @Description Returns only alerts on events owned by the user's keys.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Items per page (max 100)"
// @Param level query string false "Filter by level"
// @Param status query string false "Filter by status"
// @Param rule_name query string false "Filter by rule name"
// @Param start_date query string false "RFC3339 lower bound"
// @Param end_date query string false "RFC3339 upper bound"
// @Success 200 {object} model.AlertList
// @Failure 422 {object} map[string]string
// @Router /api/alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	user := GetAuthUser(c)

	filter := model.AlertFilter{
		UserID:   user.ID,
		RuleName: c.Query("rule_name"),
	}

	if level := c.Query("level"); level != "" {
		filter.Level = model.AlertLevel(level)
		if !filter.Level.Valid() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{"level": "oneof"}})
			return
		}
	}
	if status := c.Query("status"); status != "" {
		filter.Status = model.AlertStatus(status)
		if !filter.Status.Valid() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{"status": "oneof"}})
			return
		}
	}

	var ok bool
	if filter.StartDate, ok = parseTimeQuery(c, "start_date"); !ok {
		return
	}
	if filter.EndDate, ok = parseTimeQuery(c, "end_date"); !ok {
		return
	}

	list, err := h.svc.List(c.Request.Context(), service.AlertListRequest{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 20),
		Filter:   filter,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Stats godoc
// @Summary Alert statistics for the current user
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AlertStats
// @Router /api/alerts/stats [get]
func (h *AlertHandler) Stats(c *gin.Context) {
	user := GetAuthUser(c)
	stats, err := h.svc.Stats(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Get godoc
// @Summary Get an alert
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert id"
// @Success 200 {object} model.AlertResponse
// @Failure 404 {object} map[string]string
// @Router /api/alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	user := GetAuthUser(c)
	alert, err := h.svc.Get(c.Request.Context(), user.ID, alertID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert.Response())
}

// Update godoc
// @Summary Update alert status
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert id"
// @Param request body model.AlertUpdateRequest true "New status"
// @Success 200 {object} model.AlertResponse
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/alerts/{id} [patch]
func (h *AlertHandler) Update(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	var req model.AlertUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	h.transition(c, alertID, req.Status)
}

// Acknowledge godoc
// @Summary Acknowledge an alert
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert id"
// @Success 200 {object} model.AlertResponse
// @Failure 404 {object} map[string]string
// @Router /api/alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}
	h.transition(c, alertID, model.AlertStatusAcknowledged)
}

// Resolve godoc
// @Summary Resolve an alert
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert id"
// @Success 200 {object} model.AlertResponse
// @Failure 404 {object} map[string]string
// @Router /api/alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}
	h.transition(c, alertID, model.AlertStatusResolved)
}

func (h *AlertHandler) transition(c *gin.Context, alertID uuid.UUID, status model.AlertStatus) {
	user := GetAuthUser(c)
	alert, err := h.svc.UpdateStatus(c.Request.Context(), user.ID, alertID, status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert.Response())
}
