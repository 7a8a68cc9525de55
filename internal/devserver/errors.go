package devserver

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/models"
)

// errorResponse logs the failure and aborts with an {"error"} body.
// Client errors are logged at info level.
func (s *Server) errorResponse(c *gin.Context, status int, message string, err error) {
	entry := s.log.WithFields(logrus.Fields{
		"status_code": status,
		"message":     message,
		"client_ip":   c.ClientIP(),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"request_id":  c.GetString("request_id"),
	})
	if err != nil {
		entry = entry.WithError(err)
		_ = c.Error(err)
	}

	if status >= 500 {
		entry.Error("API error response")
	} else {
		entry.Info("API client error response")
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}
