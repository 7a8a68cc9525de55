package models

// Session is the only durable client state. A nil Token means "logged out".
type Session struct {
	Token *string `json:"token"`
}

// HasToken reports whether the session carries a non-empty token
func (s Session) HasToken() bool {
	return s.Token != nil && *s.Token != ""
}

// TokenValue returns the token or an empty string
func (s Session) TokenValue() string {
	if s.Token == nil {
		return ""
	}
	return *s.Token
}

// WithToken returns a copy of the session holding token
func (s Session) WithToken(token string) Session {
	return Session{Token: &token}
}

// Cleared returns an empty session
func (s Session) Cleared() Session {
	return Session{}
}
