package models

// LoginRequest is the body of the login and register endpoints
type LoginRequest struct {
	Username string `json:"username" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// CreateReportQuery is the query string of report creation
type CreateReportQuery struct {
	Profiles string `form:"profiles"`
}
