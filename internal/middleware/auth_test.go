package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/models"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(ctx context.Context, token string) (string, error) {
	if username, ok := v[token]; ok {
		return username, nil
	}
	return "", errors.New("unknown token")
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthMiddleware(staticVerifier{"tok": "alice"})
	router := gin.New()
	router.GET("/me", auth.RequireAuthentication(), func(c *gin.Context) {
		username, err := GetUsername(c)
		require.NoError(t, err)
		token, err := GetToken(c)
		require.NoError(t, err)
		c.String(http.StatusOK, username+":"+token)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
		errMsg string
	}{
		{name: "valid", header: "tok", status: http.StatusOK, body: "alice:tok"},
		{name: "missing", status: http.StatusUnauthorized, errMsg: ErrAuthHeaderMissing.Error()},
		{name: "invalid", header: "other", status: http.StatusUnauthorized, errMsg: ErrTokenVerification.Error()},
		{name: "bearer prefix is not stripped", header: "Bearer tok", status: http.StatusUnauthorized, errMsg: ErrTokenVerification.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.errMsg == "" {
				assert.Equal(t, tt.body, w.Body.String())
				return
			}
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.errMsg, resp.Error)
		})
	}
}

func TestContextGetters(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetUsername(c)
	assert.Error(t, err)
	_, err = GetToken(c)
	assert.Error(t, err)

	c.Set(usernameKey, 42)
	_, err = GetUsername(c)
	assert.Error(t, err)
}
