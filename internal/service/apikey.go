package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auditflow/backend/internal/model"
)

type ApiKeyRepo interface {
	CreateApiKey(ctx context.Context, userID uuid.UUID, name string, description *string, keyHash, keyPrefix string) (*model.ApiKey, error)
	GetApiKeyByID(ctx context.Context, userID, keyID uuid.UUID) (*model.ApiKey, error)
	ListApiKeys(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]model.ApiKey, error)
	DeactivateApiKey(ctx context.Context, userID, keyID uuid.UUID) (bool, error)
	RotateApiKey(ctx context.Context, userID, keyID uuid.UUID, keyHash, keyPrefix string) (*model.ApiKey, error)
}

type ApiKeyService struct {
	repo ApiKeyRepo
}

func NewApiKeyService(repo ApiKeyRepo) *ApiKeyService {
	return &ApiKeyService{repo: repo}
}

// Create issues a new key. The raw value exists only in the returned
// string; afterwards only its hash and prefix survive.
func (s *ApiKeyService) Create(ctx context.Context, userID uuid.UUID, req model.ApiKeyCreateRequest) (*model.ApiKey, string, error) {
	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	key, err := s.repo.CreateApiKey(ctx, userID, req.Name, req.Description, HashAPIKey(rawKey), KeyPrefix(rawKey))
	if err != nil {
		return nil, "", err
	}

	log.Info().
		Str("key_id", key.ID.String()).
		Str("key_prefix", key.KeyPrefix).
		Str("user_id", userID.String()).
		Msg("api key created")

	return key, rawKey, nil
}

func (s *ApiKeyService) List(ctx context.Context, userID uuid.UUID, includeInactive bool) (*model.ApiKeyList, error) {
	keys, err := s.repo.ListApiKeys(ctx, userID, includeInactive)
	if err != nil {
		return nil, err
	}

	items := make([]model.ApiKeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, keys[i].Response())
	}
	return &model.ApiKeyList{Items: items, Total: len(items)}, nil
}

func (s *ApiKeyService) Get(ctx context.Context, userID, keyID uuid.UUID) (*model.ApiKey, error) {
	key, err := s.repo.GetApiKeyByID(ctx, userID, keyID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return key, nil
}

// Deactivate is a soft delete; ingestion with the key's raw value
// fails immediately afterwards.
func (s *ApiKeyService) Deactivate(ctx context.Context, userID, keyID uuid.UUID) error {
	ok, err := s.repo.DeactivateApiKey(ctx, userID, keyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	log.Info().Str("key_id", keyID.String()).Str("user_id", userID.String()).Msg("api key deactivated")
	return nil
}

// Regenerate replaces the secret and re-activates the key. The old raw
// value stops working; the new one is returned exactly once.
func (s *ApiKeyService) Regenerate(ctx context.Context, userID, keyID uuid.UUID) (*model.ApiKey, string, error) {
	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	key, err := s.repo.RotateApiKey(ctx, userID, keyID, HashAPIKey(rawKey), KeyPrefix(rawKey))
	if err != nil {
		if isNoRows(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	log.Info().
		Str("key_id", key.ID.String()).
		Str("new_prefix", key.KeyPrefix).
		Str("user_id", userID.String()).
		Msg("api key regenerated")

	return key, rawKey, nil
}
