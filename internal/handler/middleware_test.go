package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditflow/backend/internal/config"
	"github.com/auditflow/backend/internal/model"
	"github.com/auditflow/backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	users map[uuid.UUID]*model.User
	keys  map[string]*model.ApiKey
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[uuid.UUID]*model.User{},
		keys:  map[string]*model.ApiKey{},
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	user := &model.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, IsActive: true}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetActiveApiKeyByHash(ctx context.Context, keyHash string) (*model.ApiKey, error) {
	if key, ok := f.keys[keyHash]; ok {
		return key, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) TouchApiKey(ctx context.Context, keyID uuid.UUID) error {
	return nil
}

func newTestAuthService(t *testing.T, store service.CredentialStore) *service.AuthService {
	t.Helper()
	svc, err := service.NewAuthService(store, config.AuthConfig{
		JWTSecret:     "handler-test-secret",
		JWTExpiration: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	store := newFakeStore()
	user := &model.User{ID: uuid.New(), Email: "a@b.io", IsActive: true}
	store.users[user.ID] = user

	authService := newTestAuthService(t, store)
	token, err := authService.CreateSessionToken(user.ID)
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	router := gin.New()
	router.GET("/me", AuthMiddleware(authService), func(c *gin.Context) {
		got := GetAuthUser(c)
		if got == nil || got.ID != user.ID {
			t.Errorf("auth user not propagated: %+v", got)
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			w := doRequest(router, http.MethodGet, "/me", headers)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareInactiveUser(t *testing.T) {
	store := newFakeStore()
	user := &model.User{ID: uuid.New(), Email: "a@b.io", IsActive: false}
	store.users[user.ID] = user

	authService := newTestAuthService(t, store)
	token, err := authService.CreateSessionToken(user.ID)
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	router := gin.New()
	router.GET("/me", AuthMiddleware(authService), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doRequest(router, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disabled account, got %d", w.Code)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	store := newFakeStore()
	rawKey, err := service.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	key := &model.ApiKey{ID: uuid.New(), UserID: uuid.New(), KeyHash: service.HashAPIKey(rawKey), IsActive: true}
	store.keys[key.KeyHash] = key

	authService := newTestAuthService(t, store)

	router := gin.New()
	router.POST("/ingest", APIKeyMiddleware(authService), func(c *gin.Context) {
		got := GetApiKey(c)
		if got == nil || got.ID != key.ID {
			t.Errorf("api key not propagated: %+v", got)
		}
		c.Status(http.StatusOK)
	})

	w := doRequest(router, http.MethodPost, "/ingest", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/ingest", map[string]string{apiKeyHeader: "af_unknown"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/ingest", map[string]string{apiKeyHeader: rawKey})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid key, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := service.NewRateLimiter(config.RateLimitConfig{Requests: 2, Window: time.Hour})

	router := gin.New()
	router.POST("/ingest", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	headers := map[string]string{apiKeyHeader: "af_limited0000000000"}
	for i := 0; i < 2; i++ {
		if w := doRequest(router, http.MethodPost, "/ingest", headers); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := doRequest(router, http.MethodPost, "/ingest", headers); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over quota, got %d", w.Code)
	}

	// A different key has its own counter.
	other := map[string]string{apiKeyHeader: "af_other00000000000"}
	if w := doRequest(router, http.MethodPost, "/ingest", other); w.Code != http.StatusOK {
		t.Fatalf("expected independent quota per identity, got %d", w.Code)
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	router.POST("/api/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(router, http.MethodOptions, "/api/events", map[string]string{"Origin": "http://localhost:3000"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	w = doRequest(router, http.MethodOptions, "/api/events", map[string]string{"Origin": "http://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}
