package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/config"
)

// New builds a logger from the logging config. LOG_LEVEL overrides the configured level.
func New(cfg config.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   out != os.Stdout && out != os.Stderr,
		})
	}

	logLevel := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}
	if logLevel == "" {
		logger.SetLevel(logrus.InfoLevel)
		return logger
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	return logger
}

// OpenFile opens path for appending, creating parent directories as needed
func OpenFile(fs afero.Fs, path string) (afero.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
