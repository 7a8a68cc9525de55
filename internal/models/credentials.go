package models

import "fmt"

// Form field names accepted by Credentials.Set
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// Credentials is the login/register form data. It is transient and is
// reset as soon as a login or register request is issued.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Set updates a single form field
func (c *Credentials) Set(field, value string) error {
	switch field {
	case FieldUsername:
		c.Username = value
	case FieldPassword:
		c.Password = value
	default:
		return fmt.Errorf("unknown credentials field %q", field)
	}
	return nil
}

// Reset clears both fields
func (c *Credentials) Reset() {
	c.Username = ""
	c.Password = ""
}
