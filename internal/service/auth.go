package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/auditflow/backend/internal/config"
	"github.com/auditflow/backend/internal/model"
)

const (
	// apiKeyPrefix marks raw keys as AuditFlow credentials. The raw
	// value is prefix + 43 base64url chars of 32 random bytes.
	apiKeyPrefix = "af_"

	// keyPrefixLength is how much of the raw key is stored for display.
	keyPrefixLength = 10

	// rateLimitIdentityLength is how much of the raw key buckets the
	// rate limiter. Identity is derived before validation.
	rateLimitIdentityLength = 16
)

type CredentialStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetActiveApiKeyByHash(ctx context.Context, keyHash string) (*model.ApiKey, error)
	TouchApiKey(ctx context.Context, keyID uuid.UUID) error
}

type AuthService struct {
	store     CredentialStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewAuthService(store CredentialStore, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}
	if cfg.JWTExpiration <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_EXPIRATION_MINUTES", ErrMisconfigured)
	}
	return &AuthService{
		store:     store,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.JWTExpiration,
	}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GenerateAPIKey returns a raw key with 256 bits of randomness behind
// a fixed recognizable prefix.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashAPIKey is deterministic: stored keys are looked up by hash
// equality, unlike salted password hashes.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// KeyPrefix returns the short leading substring stored for display.
func KeyPrefix(raw string) string {
	if len(raw) < keyPrefixLength {
		return raw
	}
	return raw[:keyPrefixLength]
}

// RateLimitIdentity derives the limiter bucket for a request: the
// leading characters of whatever key the caller presented, or the
// remote address when no key is present.
func RateLimitIdentity(rawKey, remoteAddr string) string {
	if rawKey != "" {
		if len(rawKey) > rateLimitIdentityLength {
			rawKey = rawKey[:rateLimitIdentityLength]
		}
		return "apikey:" + rawKey
	}
	return "ip:" + remoteAddr
}

func (s *AuthService) CreateSessionToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateSessionToken verifies signature and expiry and returns the
// subject user id. Any malformed, forged, or expired token fails with
// ErrUnauthenticated.
func (s *AuthService) ValidateSessionToken(tokenStr string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return userID, nil
}

// AuthenticateToken resolves a bearer token to a live user record.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenStr string) (*model.User, error) {
	userID, err := s.ValidateSessionToken(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return user, nil
}

// AuthenticateAPIKey validates a raw key against active stored hashes.
// The last-used stamp is best-effort; a failed touch never fails the
// request.
func (s *AuthService) AuthenticateAPIKey(ctx context.Context, rawKey string) (*model.ApiKey, error) {
	if rawKey == "" {
		return nil, ErrUnauthenticated
	}

	key, err := s.store.GetActiveApiKeyByHash(ctx, HashAPIKey(rawKey))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if err := s.store.TouchApiKey(ctx, key.ID); err != nil {
		log.Warn().Err(err).Str("key_prefix", key.KeyPrefix).Msg("failed to update key last_used_at")
	}
	return key, nil
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, email, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if isNoRows(err) {
			log.Warn().Str("email", email).Msg("failed login attempt")
			return "", nil, ErrUnauthenticated
		}
		return "", nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		log.Warn().Str("email", email).Msg("failed login attempt")
		return "", nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return "", nil, ErrForbidden
	}

	token, err := s.CreateSessionToken(user.ID)
	if err != nil {
		return "", nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return token, user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
