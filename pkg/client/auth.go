package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/threatflux/violetearClient/internal/models"
)

var validate = validator.New()

// Login authenticates with the API and returns the session token
func (c *APIClient) Login(ctx context.Context, creds models.Credentials) (string, error) {
	token, err := c.authenticate(ctx, APIPathAuthLogin, creds)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	return token, nil
}

// Register creates an account and returns the session token
func (c *APIClient) Register(ctx context.Context, creds models.Credentials) (string, error) {
	token, err := c.authenticate(ctx, APIPathAuthRegister, creds)
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}
	return token, nil
}

// authenticate posts credentials to path. A 2xx response without a token is a decode failure.
func (c *APIClient) authenticate(ctx context.Context, path string, creds models.Credentials) (string, error) {
	if err := validate.Struct(creds); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	endpoint, err := c.apiEndpoint(path)
	if err != nil {
		return "", err
	}

	reqBody := models.LoginRequest{
		Username: creds.Username,
		Password: creds.Password,
	}

	var tokenResp models.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, "", reqBody, &tokenResp); err != nil {
		return "", err
	}
	if tokenResp.Token == nil || *tokenResp.Token == "" {
		return "", fmt.Errorf("%w: response carried no token", ErrDecodeFailed)
	}

	return *tokenResp.Token, nil
}

// Logout invalidates token on the server
func (c *APIClient) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: not logged in", ErrInvalidInput)
	}

	endpoint, err := c.apiEndpoint(APIPathAuthLogout)
	if err != nil {
		return err
	}

	if err := c.doRequest(ctx, http.MethodPost, endpoint, token, nil, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}
