package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/app"
	"github.com/threatflux/violetearClient/internal/config"
	"github.com/threatflux/violetearClient/internal/logging"
	"github.com/threatflux/violetearClient/internal/session"
	"github.com/threatflux/violetearClient/internal/tui"
	"github.com/threatflux/violetearClient/pkg/client"
)

// Version information (will be set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// defaultLogFile receives logs when logging.file is unset; the terminal belongs to the UI
const defaultLogFile = "violetear.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "violetear:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fs := afero.NewOsFs()
	logger, logFile, err := initLogger(cfg, fs)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting violetear client")
	logger.WithFields(cfg.Fields()).Debug("Configuration loaded")

	store, closer, err := session.New(cfg, fs, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open session storage")
		return fmt.Errorf("failed to open session storage: %w", err)
	}
	defer closer.Close()

	api, err := newAPIClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create API client")
		return err
	}

	core := app.New(app.Deps{
		API:    api,
		Store:  store,
		Fs:     fs,
		Logger: logger,
	}, app.Options{
		PollInterval:    cfg.Poll.Interval,
		ForceClearAfter: cfg.Logout.ForceClearAfter,
	})
	defer core.Close()

	program := tea.NewProgram(tui.New(core), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logger.WithError(err).Error("Terminal UI failed")
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	logger.Info("violetear client stopped")
	return nil
}

// initLogger opens the log file and builds the logger writing to it
func initLogger(cfg *config.Config, fs afero.Fs) (*logrus.Logger, io.Closer, error) {
	path := cfg.Logging.File
	if path == "" {
		path = defaultLogFile
	}
	file, err := logging.OpenFile(fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return logging.New(cfg.Logging, file), file, nil
}

// newAPIClient builds the API client from the http and server settings
func newAPIClient(cfg *config.Config, logger logrus.FieldLogger) (*client.APIClient, error) {
	opts := []client.ClientOption{
		client.WithBaseURL(cfg.Server.URL),
		client.WithTimeout(cfg.HTTP.Timeout),
		client.WithRetryOptions(cfg.HTTP.MaxRetries, cfg.HTTP.RetryDelay),
		client.WithTLSInsecureSkipVerify(cfg.HTTP.TLSInsecureSkipVerify),
		client.WithLogger(logger.WithField("component", "client")),
	}
	if cfg.HTTP.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.HTTP.UserAgent))
	}
	if cfg.HTTP.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst))
	}

	api, err := client.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return api, nil
}
