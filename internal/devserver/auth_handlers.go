package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threatflux/violetearClient/internal/middleware"
	"github.com/threatflux/violetearClient/internal/models"
)

const errInvalidCredentials = "invalid username or password"

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	hash, err := s.store.PasswordHash(req.Username)
	if err != nil || !s.hasher.Check(req.Password, hash) {
		s.errorResponse(c, http.StatusUnauthorized, errInvalidCredentials, nil)
		return
	}
	s.respondWithToken(c, req.Username)
}

func (s *Server) register(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	switch {
	case errors.Is(err, ErrEmptyPassword), errors.Is(err, ErrPasswordTooLong):
		s.errorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	case err != nil:
		s.errorResponse(c, http.StatusInternalServerError, "failed to register user", err)
		return
	}

	if err := s.store.CreateUser(req.Username, hash); err != nil {
		if errors.Is(err, ErrUserExists) {
			s.errorResponse(c, http.StatusConflict, err.Error(), nil)
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, "failed to register user", err)
		return
	}
	s.log.WithField("username", req.Username).Info("User registered")
	s.respondWithToken(c, req.Username)
}

func (s *Server) respondWithToken(c *gin.Context, username string) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "failed to issue token", err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{Token: &token})
}

func (s *Server) logout(c *gin.Context) {
	token, err := middleware.GetToken(c)
	if err != nil {
		s.errorResponse(c, http.StatusUnauthorized, "authentication required", err)
		return
	}
	if err := s.tokens.Revoke(token); err != nil {
		s.errorResponse(c, http.StatusUnauthorized, "invalid token", err)
		return
	}
	c.Status(http.StatusNoContent)
}
