package models

// Report identifies the server-side analysis job created by an upload
type Report struct {
	ID int64 `json:"report_id"`
}
