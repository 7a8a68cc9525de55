package database

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// getLogLevel maps a logrus level name to a GORM log level
func getLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace": // GORM's Info level logs SQL
		return logger.Info
	case "info", "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Silent
	}
}

// LogrusAdapter adapts a logrus logger to GORM's logger.Writer interface
type LogrusAdapter struct {
	logger logrus.FieldLogger
}

// NewLogrusAdapter creates a new Logrus adapter for GORM
func NewLogrusAdapter(log logrus.FieldLogger) *LogrusAdapter {
	return &LogrusAdapter{
		logger: log,
	}
}

// Printf implements the logger.Writer interface. GORM's own level filtering applies first.
func (l *LogrusAdapter) Printf(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.WithField("component", "gorm").Debugf(format, args...)
}

// discardWriter implements logger.Writer but does nothing
type discardWriter struct{}

// Printf implements the logger.Writer interface for discardWriter
func (dw discardWriter) Printf(format string, args ...interface{}) {}
