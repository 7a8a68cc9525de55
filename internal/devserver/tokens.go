package devserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Token errors
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("token has expired")
	ErrRevokedToken         = errors.New("token has been revoked")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrMissingKey           = errors.New("signing key is missing")
)

const tokenIssuer = "violetear-devserver"

// sessionClaims are the claims of a session token
type sessionClaims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// TokenService issues, verifies and revokes HS256 session tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	log    logrus.FieldLogger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewTokenService creates a token service. An empty secret is replaced by a
// random one, so tokens do not survive a restart.
func NewTokenService(secret string, ttl time.Duration, log logrus.FieldLogger) *TokenService {
	if secret == "" {
		log.Warn("JWT secret is empty, generating an ephemeral one")
		secret = uuid.NewString() + uuid.NewString()
	}
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		log:     log,
		revoked: make(map[string]time.Time),
	}
}

// Issue creates a token for username
func (s *TokenService) Issue(username string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingKey
	}

	now := time.Now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenString string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.ID == "" || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the username a valid, unrevoked token belongs to
func (s *TokenService) Verify(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		s.log.WithError(err).Debug("Token verification failed")
		return "", err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return "", ErrRevokedToken
	}
	return claims.Username, nil
}

// Revoke invalidates a token until it would have expired anyway
func (s *TokenService) Revoke(tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}
