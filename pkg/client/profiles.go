package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/threatflux/violetearClient/internal/models"
)

// ListProfiles returns the scan profiles available to the user
func (c *APIClient) ListProfiles(ctx context.Context, token string) ([]models.Profile, error) {
	endpoint, err := c.apiEndpoint(APIPathProfiles)
	if err != nil {
		return nil, err
	}

	var resp models.ProfilesResponse
	if err := c.doRequest(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	if resp.Profiles == nil {
		return []models.Profile{}, nil
	}
	return resp.Profiles, nil
}
