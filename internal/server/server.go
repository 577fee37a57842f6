// Package server exposes the recommender as an HTML form and a JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/matsen/journalrec/internal/logger"
	"github.com/matsen/journalrec/internal/pipeline"
	"github.com/matsen/journalrec/internal/topics"
)

// ShutdownTimeout bounds how long in-flight requests may finish after a stop signal.
const ShutdownTimeout = 10 * time.Second

// MaxUploadBytes caps manuscript PDF uploads.
const MaxUploadBytes = 20 << 20

// Service is the recommendation session the handlers call.
type Service interface {
	Recommend(ctx context.Context, req pipeline.Request) *pipeline.Outcome
	Domains(ctx context.Context) ([]string, []string, error)
	Topics(ctx context.Context, text string, topK int) topics.Result
	Rebuild(ctx context.Context) (*pipeline.Info, error)
	Info() pipeline.Info
}

// Options configures the HTTP server.
type Options struct {
	ServiceName  string
	Tracing      bool
	AllowOrigins []string
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	log    *logger.Logger
	engine *gin.Engine
}

// New builds the router and middleware chain.
func New(svc Service, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "jrec"
	}

	engine := gin.New()
	engine.MaxMultipartMemory = MaxUploadBytes
	engine.Use(RequestID(), Recovery(log), RequestLogger(log), CORS(opts.AllowOrigins))
	if opts.Tracing {
		engine.Use(otelgin.Middleware(opts.ServiceName))
	}

	s := &Server{svc: svc, log: log, engine: engine}

	engine.GET("/", s.handleIndex)
	engine.POST("/", s.handleSubmit)
	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api")
	{
		api.POST("/recommend", s.handleRecommend)
		api.GET("/domains", s.handleDomains)
		api.POST("/topics", s.handleTopics)
		api.POST("/rebuild", s.handleRebuild)
	}
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
