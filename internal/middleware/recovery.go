package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/models"
)

// RecoveryMiddleware turns handler panics into 500 responses
type RecoveryMiddleware struct {
	logger logrus.FieldLogger
}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware(logger logrus.FieldLogger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

// Recovery returns a middleware that recovers from panics
func (m *RecoveryMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			httpRequest, _ := httputil.DumpRequest(c.Request, false)
			m.logger.WithFields(logrus.Fields{
				"error":      err,
				"request":    string(httpRequest),
				"stack":      string(debug.Stack()),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString("request_id"),
			}).Error("[Recovery] Panic recovered")

			// a dead connection cannot take a status
			if isBrokenPipe(err) {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "internal server error",
			})
		}()
		c.Next()
	}
}

func isBrokenPipe(v interface{}) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
