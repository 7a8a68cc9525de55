package models

// Config is the environment configuration served by the static origin as /config.json.
// It is loaded once at startup and never modified afterwards.
type Config struct {
	APIURL string `json:"api_url" validate:"required,url"`
}
