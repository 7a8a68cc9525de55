package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID carries the request correlation id
const HeaderRequestID = "X-Request-ID"

// bodyWriter captures the response body while writing it through
type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// LoggingMiddleware logs HTTP requests and responses
type LoggingMiddleware struct {
	logger          logrus.FieldLogger
	logRequestBody  bool
	logResponseBody bool
	logHeaders      bool
	maxBodyLogSize  int
}

// LoggingOption configures the logging middleware
type LoggingOption func(*LoggingMiddleware)

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger logrus.FieldLogger, opts ...LoggingOption) *LoggingMiddleware {
	m := &LoggingMiddleware{
		logger:         logger,
		logHeaders:     false,
		maxBodyLogSize: 1024,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithRequestBodyLogging enables logging of request bodies.
// Upload bodies are binary, so this is off by default.
func WithRequestBodyLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logRequestBody = enabled
	}
}

// WithResponseBodyLogging enables logging of response bodies
func WithResponseBodyLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logResponseBody = enabled
	}
}

// WithHeaderLogging enables logging of request headers
func WithHeaderLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logHeaders = enabled
	}
}

// WithMaxBodyLogSize sets the maximum size of request/response bodies to log
func WithMaxBodyLogSize(sizeBytes int) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.maxBodyLogSize = sizeBytes
	}
}

func (m *LoggingMiddleware) truncate(b []byte) string {
	if len(b) > m.maxBodyLogSize {
		return string(b[:m.maxBodyLogSize])
	}
	return string(b)
}

// Logger returns a gin middleware function for logging requests
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		var requestBody []byte
		if m.logRequestBody && c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			requestBody = bodyBytes
			c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		var responseBody *bytes.Buffer
		if m.logResponseBody {
			responseBody = &bytes.Buffer{}
			c.Writer = &bodyWriter{ResponseWriter: c.Writer, body: responseBody}
		}

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"request_id": c.GetString("request_id"),
			"user_agent": c.Request.UserAgent(),
		}

		if m.logHeaders {
			headers := make(map[string][]string, len(c.Request.Header))
			for k, v := range c.Request.Header {
				if k == "Authorization" || k == "Cookie" {
					headers[k] = []string{"[REDACTED]"}
					continue
				}
				headers[k] = v
			}
			fields["request_headers"] = headers
		}
		if len(requestBody) > 0 {
			fields["request_body"] = m.truncate(requestBody)
		}
		if responseBody != nil {
			fields["response_body"] = m.truncate(responseBody.Bytes())
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields["error"] = errs
		}

		entry := m.logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("Request processed with error")
		case status >= 400:
			entry.Warn("Request processed with warning")
		default:
			entry.Info("Request processed")
		}
	}
}

// RequestIDMiddleware reuses the caller's request id or assigns a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}
