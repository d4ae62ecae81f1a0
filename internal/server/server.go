package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/hcpdash/internal/config"
	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/session"
)

// Options configures the HTTP server.
type Options struct {
	Password       string
	Schema         string
	TopN           int
	MaxUploadBytes int64
	SessionTTL     time.Duration
	DevMode        bool
}

// OptionsFromConfig maps the loaded configuration onto server options.
func OptionsFromConfig(c *config.Global) Options {
	return Options{
		Password:       c.Password,
		Schema:         c.Schema,
		TopN:           c.TopN,
		MaxUploadBytes: int64(c.MaxUploadMB) << 20,
		SessionTTL:     time.Duration(c.SessionTTLMin) * time.Minute,
		DevMode:        c.DevMode,
	}
}

// Server serves the dashboard API.
type Server struct {
	router   *gin.Engine
	sessions *session.Store
	opts     Options
}

// New builds the router and an empty session store.
func New(opts Options) (*Server, error) {
	if _, err := schema.Lookup(opts.Schema); err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if !opts.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:   gin.New(),
		sessions: session.NewStore(opts.SessionTTL),
		opts:     opts,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/healthz", s.healthz)

	api := s.router.Group("/api")
	api.Use(s.withSession())
	{
		api.POST("/login", s.login)
		api.POST("/logout", s.logout)

		authed := api.Group("")
		authed.Use(s.requireAuth())
		authed.POST("/uploads", s.upload)
		authed.DELETE("/uploads", s.clearUploads)
		authed.GET("/columns", s.columns)
		authed.PUT("/mapping", s.putMapping)
		authed.POST("/view", s.view)
		authed.GET("/export/full.csv", s.exportFull)
		authed.POST("/export/filtered.csv", s.exportFiltered)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions exposes the session store.
func (s *Server) Sessions() *session.Store { return s.sessions }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
