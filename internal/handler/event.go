package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
	"github.com/auditflow/backend/internal/service"
)

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// Create godoc
// @Summary Ingest an audit event
// @Description Persists the event and publishes it to the stream. Requires X-API-Key.
// @Tags events
// @Accept json
// @Produce json
// @Param request body model.EventCreateRequest true "Event"
// @Success 201 {object} model.EventResponse
// @Failure 401 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req model.EventCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	key := GetApiKey(c)
	if key == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	event, err := h.svc.Ingest(c.Request.Context(), key, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event.Response())
}

// List godoc
// @Summary List events
// @Description Returns only events ingested through the user's own keys.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Items per page (max 100)"
// @Param event_type query string false "Filter by event type"
// @Param severity query string false "Filter by severity"
// @Param source query string false "Filter by source"
// @Param start_date query string false "RFC3339 lower bound"
// @Param end_date query string false "RFC3339 upper bound"
// @Param api_key_id query string false "Filter by key id"
// @Success 200 {object} model.EventList
// @Failure 422 {object} map[string]string
// @Router /api/events [get]
func (h *EventHandler) List(c *gin.Context) {
	user := GetAuthUser(c)

	filter := model.EventFilter{
		UserID:    user.ID,
		EventType: c.Query("event_type"),
		Source:    c.Query("source"),
	}

	if severity := c.Query("severity"); severity != "" {
		filter.Severity = model.EventSeverity(severity)
		if !filter.Severity.Valid() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{"severity": "oneof"}})
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

	if raw := c.Query("api_key_id"); raw != "" {
		keyID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{"api_key_id": "uuid"}})
			return
		}
		filter.ApiKeyID = &keyID
	}

	list, err := h.svc.List(c.Request.Context(), service.EventListRequest{
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
// @Summary Event statistics for the current user
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.EventStats
// @Router /api/events/stats [get]
func (h *EventHandler) Stats(c *gin.Context) {
	user := GetAuthUser(c)
	stats, err := h.svc.Stats(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Get godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event id"
// @Success 200 {object} model.EventResponse
// @Failure 404 {object} map[string]string
// @Router /api/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	user := GetAuthUser(c)
	event, err := h.svc.Get(c.Request.Context(), user.ID, eventID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event.Response())
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{name: "datetime"}})
		return nil, false
	}
	return &parsed, true
}
