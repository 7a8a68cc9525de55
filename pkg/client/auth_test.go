package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/models"
)

// TestLogin tests the login functionality
func TestLogin(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check request path and method
		assert.Equal(t, APIPathAuthLogin, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		// Read and verify request body
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var loginReq models.LoginRequest
		err = json.Unmarshal(body, &loginReq)
		require.NoError(t, err)

		// Check login credentials
		if loginReq.Username == "validuser" && loginReq.Password == "validpass" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"token": "test-token"}`))
		} else {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid credentials"}`))
		}
	}))
	defer server.Close()

	// Create client
	client, err := NewClient(WithAPIURL(server.URL))
	require.NoError(t, err)

	// Test successful login
	token, err := client.Login(context.Background(), models.Credentials{Username: "validuser", Password: "validpass"})
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)

	// Test failed login
	_, err = client.Login(context.Background(), models.Credentials{Username: "invaliduser", Password: "invalidpass"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, ServerError, KindOf(err))

	// Test invalid input
	_, err = client.Login(context.Background(), models.Credentials{Username: "", Password: "validpass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.Login(context.Background(), models.Credentials{Username: "validuser"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// TestLogin_MissingToken tests that a 2xx without a token is a decode failure
func TestLogin_MissingToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"absent", `{}`},
		{"null", `{"token": null}`},
		{"empty", `{"token": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(WithAPIURL(server.URL))
			require.NoError(t, err)

			_, err = client.Login(context.Background(), models.Credentials{Username: "u", Password: "p"})
			assert.ErrorIs(t, err, ErrDecodeFailed)
			assert.Equal(t, DecodeFailure, KindOf(err))
		})
	}
}

// TestRegister tests the registration functionality
func TestRegister(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIPathAuthRegister, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Username == "existing" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error": "username taken"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "new-token"}`))
	}))
	defer server.Close()

	client, err := NewClient(WithAPIURL(server.URL))
	require.NoError(t, err)

	token, err := client.Register(context.Background(), models.Credentials{Username: "newuser", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	_, err = client.Register(context.Background(), models.Credentials{Username: "existing", Password: "pw"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "registration failed")
}

// TestLogout tests the logout functionality
func TestLogout(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIPathAuthLogout, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		// Raw token, no scheme prefix
		if r.Header.Get("Authorization") != "valid-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(WithAPIURL(server.URL))
	require.NoError(t, err)

	err = client.Logout(context.Background(), "valid-token")
	assert.NoError(t, err)

	err = client.Logout(context.Background(), "Bearer valid-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Test not logged in
	err = client.Logout(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
