package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auditflow/backend/internal/model"
	"github.com/auditflow/backend/internal/service"
)

const (
	authUserKey  = "auth_user"
	apiKeyCtxKey = "api_key"

	apiKeyHeader = "X-API-Key"
)

// AuthMiddleware authenticates dashboard requests by bearer token and
// stores the resolved user in the request context.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := authService.AuthenticateToken(c.Request.Context(), token)
		if err != nil {
			writeServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// APIKeyMiddleware authenticates ingestion requests by the raw key in
// the X-API-Key header.
func APIKeyMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(apiKeyHeader)
		if rawKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		key, err := authService.AuthenticateAPIKey(c.Request.Context(), rawKey)
		if err != nil {
			writeServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(apiKeyCtxKey, key)
		c.Next()
	}
}

// RateLimitMiddleware rejects over-quota requests before any auth or
// business logic runs. Identity is the presented key's leading
// characters, or the client IP when no key is present.
func RateLimitMiddleware(limiter *service.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := service.RateLimitIdentity(c.GetHeader(apiKeyHeader), c.ClientIP())
		if !limiter.Allow(identity, time.Now()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}

func GetApiKey(c *gin.Context) *model.ApiKey {
	if value, ok := c.Get(apiKeyCtxKey); ok {
		if key, ok := value.(*model.ApiKey); ok {
			return key
		}
	}
	return nil
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
