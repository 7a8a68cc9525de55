// Package devserver is an in-memory development backend for the client.
//
// It serves the configuration, authentication, profile, report and task
// endpoints the client talks to. Tasks are not scanned: they move from new to
// pending to a verdict each time the task step elapses.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/config"
	"github.com/threatflux/violetearClient/internal/middleware"
)

// shutdownTimeout bounds the graceful shutdown of Start
const shutdownTimeout = 10 * time.Second

// maxUploadSize caps the body of report creation
const maxUploadSize = 32 << 20

// Options holds the dependencies of a Server
type Options struct {
	Config     config.DevServerConfig
	Logger     *logrus.Logger
	Store      *Store
	Version    string
	BcryptCost int
}

// Server is the development backend
type Server struct {
	cfg     config.DevServerConfig
	log     *logrus.Logger
	store   *Store
	tokens  *TokenService
	hasher  *PasswordHasher
	authMW  *middleware.AuthMiddleware
	version string

	router     *gin.Engine
	httpServer *http.Server
	now        func() time.Time
}

// NewServer creates a server and registers its routes
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Config.TokenTTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if opts.Config.TaskStep <= 0 {
		return nil, errors.New("task step must be positive")
	}
	if opts.Store == nil {
		opts.Store = NewStore(DefaultProfiles())
	}

	log := opts.Logger
	tokens := NewTokenService(opts.Config.JWTSecret, opts.Config.TokenTTL, log.WithField("component", "tokens"))
	s := &Server{
		cfg:     opts.Config,
		log:     log,
		store:   opts.Store,
		tokens:  tokens,
		hasher:  NewPasswordHasher(opts.BcryptCost),
		authMW:  middleware.NewAuthMiddleware(tokens),
		version: opts.Version,
		now:     time.Now,
	}

	switch opts.Config.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.NewLoggingMiddleware(log).Logger())
	router.Use(middleware.NewRecoveryMiddleware(log).Recovery())
	s.router = router
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:        opts.Config.Listen,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: task event streams stay open
	}
	return s, nil
}

// Router returns the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Store returns the backing store
func (s *Server) Store() *Store {
	return s.store
}

// PublicURL is the api_url advertised by /config.json
func (s *Server) PublicURL() string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/")
	}
	listen := s.cfg.Listen
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	return "http://" + listen
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	advanceDone := make(chan struct{})
	advanceCtx, stopAdvance := context.WithCancel(ctx)
	defer stopAdvance()
	go func() {
		defer close(advanceDone)
		s.advanceLoop(advanceCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"address":    s.httpServer.Addr,
			"public_url": s.PublicURL(),
		}).Info("Starting development server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		stopAdvance()
		<-advanceDone
		if ok {
			return fmt.Errorf("development server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down development server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	stopAdvance()
	<-advanceDone
	if err != nil {
		return fmt.Errorf("failed to shut down development server: %w", err)
	}
	s.log.Info("Development server shutdown complete")
	return nil
}

// advanceLoop moves tasks forward every task step
func (s *Server) advanceLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TaskStep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Advance(s.now()); n > 0 {
				s.log.WithField("tasks", n).Debug("Tasks advanced")
			}
		}
	}
}
