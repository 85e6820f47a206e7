package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
	"github.com/auditflow/backend/internal/service"
)

type ApiKeyHandler struct {
	svc *service.ApiKeyService
}

func NewApiKeyHandler(svc *service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{svc: svc}
}

// Create godoc
// @Summary Create an API key
// @Description The raw key is returned only in this response.
// @Tags keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ApiKeyCreateRequest true "Key name and description"
// @Success 201 {object} model.ApiKeyCreatedResponse
// @Failure 422 {object} map[string]string
// @Router /api/keys [post]
func (h *ApiKeyHandler) Create(c *gin.Context) {
	var req model.ApiKeyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	user := GetAuthUser(c)
	key, rawKey, err := h.svc.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.ApiKeyCreatedResponse{
		ApiKeyResponse: key.Response(),
		Key:            rawKey,
	})
}

// List godoc
// @Summary List the user's API keys
// @Tags keys
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "Include deactivated keys"
// @Success 200 {object} model.ApiKeyList
// @Router /api/keys [get]
func (h *ApiKeyHandler) List(c *gin.Context) {
	user := GetAuthUser(c)
	includeInactive := c.Query("include_inactive") == "true"

	list, err := h.svc.List(c.Request.Context(), user.ID, includeInactive)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary Get an API key
// @Tags keys
// @Produce json
// @Security BearerAuth
// @Param id path string true "Key id"
// @Success 200 {object} model.ApiKeyResponse
// @Failure 404 {object} map[string]string
// @Router /api/keys/{id} [get]
func (h *ApiKeyHandler) Get(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	user := GetAuthUser(c)
	key, err := h.svc.Get(c.Request.Context(), user.ID, keyID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, key.Response())
}

// Delete godoc
// @Summary Deactivate an API key
// @Tags keys
// @Security BearerAuth
// @Param id path string true "Key id"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/keys/{id} [delete]
func (h *ApiKeyHandler) Delete(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	user := GetAuthUser(c)
	if err := h.svc.Deactivate(c.Request.Context(), user.ID, keyID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Regenerate godoc
// @Summary Regenerate an API key
// @Description Replaces the secret; the old raw key stops working immediately.
// @Tags keys
// @Produce json
// @Security BearerAuth
// @Param id path string true "Key id"
// @Success 200 {object} model.ApiKeyCreatedResponse
// @Failure 404 {object} map[string]string
// @Router /api/keys/{id}/regenerate [post]
func (h *ApiKeyHandler) Regenerate(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeServiceError(c, service.ErrNotFound)
		return
	}

	user := GetAuthUser(c)
	key, rawKey, err := h.svc.Regenerate(c.Request.Context(), user.ID, keyID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ApiKeyCreatedResponse{
		ApiKeyResponse: key.Response(),
		Key:            rawKey,
	})
}
