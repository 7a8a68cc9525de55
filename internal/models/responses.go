package models

// TokenResponse is returned by login and register.
// Token is a pointer so that an absent field can be told apart from an empty one.
type TokenResponse struct {
	Token *string `json:"token"`
}

// ProfilesResponse is returned by GET /v1/profiles
type ProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
}

// CreateReportResponse is returned by report creation
type CreateReportResponse struct {
	ReportID int64 `json:"report_id"`
}

// TasksResponse is returned by GET /v1/reports/{id}/tasks
type TasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// ErrorResponse is the error body used by the development server
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health on the development server
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
