package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/threatflux/violetearClient/internal/models"
)

// CreateReport uploads content for analysis by the comma-separated profiles
func (c *APIClient) CreateReport(ctx context.Context, token string, profiles string, content []byte) (*models.Report, error) {
	endpoint, err := c.apiEndpoint(APIPathReportsCreate)
	if err != nil {
		return nil, err
	}
	// Commas stay literal so the server sees a plain comma-separated list
	endpoint += "?profiles=" + strings.ReplaceAll(url.QueryEscape(profiles), "%2C", ",")

	var resp models.CreateReportResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, token, content, &resp); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	if resp.ReportID <= 0 {
		return nil, fmt.Errorf("failed to create report: %w: response carried no report id", ErrDecodeFailed)
	}
	return &models.Report{ID: resp.ReportID}, nil
}

// ListTasks returns the tasks of a report
func (c *APIClient) ListTasks(ctx context.Context, token string, reportID int64) ([]models.Task, error) {
	endpoint, err := c.apiEndpoint(fmt.Sprintf(APIPathReportTasks, reportID))
	if err != nil {
		return nil, err
	}

	var resp models.TasksResponse
	if err := c.doRequest(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tasks for report %d: %w", reportID, err)
	}
	if resp.Tasks == nil {
		return []models.Task{}, nil
	}
	return resp.Tasks, nil
}
