package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threatflux/violetearClient/internal/models"
)

const (
	usernameKey = "username"
	tokenKey    = "token"
)

// Authentication errors
var (
	ErrAuthHeaderMissing = errors.New("authorization header is required")
	ErrTokenVerification = errors.New("failed to verify token")
)

// TokenVerifier resolves a raw session token to its user
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// AuthMiddleware authenticates requests carrying the raw token in Authorization
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuthentication rejects requests without a valid token
func (m *AuthMiddleware) RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: ErrAuthHeaderMissing.Error()})
			return
		}

		username, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(fmt.Errorf("%w: %v", ErrTokenVerification, err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: ErrTokenVerification.Error()})
			return
		}

		c.Set(usernameKey, username)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// GetUsername returns the authenticated user of the request
func GetUsername(c *gin.Context) (string, error) {
	value, exists := c.Get(usernameKey)
	if !exists {
		return "", errors.New("username not found in context")
	}
	username, ok := value.(string)
	if !ok {
		return "", errors.New("username in context has invalid type")
	}
	return username, nil
}

// GetToken returns the verified token of the request
func GetToken(c *gin.Context) (string, error) {
	value, exists := c.Get(tokenKey)
	if !exists {
		return "", errors.New("token not found in context")
	}
	token, ok := value.(string)
	if !ok {
		return "", errors.New("token in context has invalid type")
	}
	return token, nil
}
