package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/config"
	"github.com/threatflux/violetearClient/internal/devserver"
	"github.com/threatflux/violetearClient/internal/logging"
	"github.com/threatflux/violetearClient/internal/models"
)

// Version information (will be set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	fmt.Printf("violetear devserver %s (%s) built on %s\n", Version, Commit, BuildDate)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting violetear devserver")

	profiles, err := loadProfiles(afero.NewOsFs(), cfg.DevServer.ProfilesFile, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load profiles")
	}

	server, err := devserver.NewServer(devserver.Options{
		Config:  cfg.DevServer,
		Logger:  logger,
		Store:   devserver.NewStore(profiles),
		Version: Version,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize devserver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Devserver stopped with error")
	}
	logger.Info("Devserver shutdown complete")
}

// loadProfiles reads the seed file, or returns the built-in profiles when none is set
func loadProfiles(fs afero.Fs, path string, logger logrus.FieldLogger) ([]models.Profile, error) {
	if path == "" {
		logger.Info("No profiles file configured, serving built-in profiles")
		return devserver.DefaultProfiles(), nil
	}
	profiles, err := devserver.LoadProfiles(fs, path)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"file":     path,
		"profiles": len(profiles),
	}).Info("Profiles loaded")
	return profiles, nil
}
