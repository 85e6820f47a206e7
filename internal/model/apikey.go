package model

import (
	"time"

	"github.com/google/uuid"
)

// ApiKey is the machine credential for event ingestion. Only the
// SHA-256 hash and a short display prefix of the raw key are stored;
// the raw value is returned exactly once, at creation or regeneration.
type ApiKey struct {
	ID          uuid.UUID
	Name        string
	Description *string
	KeyHash     string
	KeyPrefix   string
	IsActive    bool
	LastUsedAt  *time.Time
	UserID      uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ApiKeyCreateRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type ApiKeyResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	KeyPrefix   string     `json:"key_prefix"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ApiKeyCreatedResponse carries the raw key. It is unrecoverable after
// this response.
type ApiKeyCreatedResponse struct {
	ApiKeyResponse
	Key string `json:"key"`
}

type ApiKeyList struct {
	Items []ApiKeyResponse `json:"items"`
	Total int              `json:"total"`
}

func (k *ApiKey) Response() ApiKeyResponse {
	return ApiKeyResponse{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		KeyPrefix:   k.KeyPrefix,
		IsActive:    k.IsActive,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}
