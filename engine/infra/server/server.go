// Package server exposes the upload form and upload handler over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/tdlimport/engine/infra/monitoring"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/logger"
)

const (
	httpReadTimeout       = 15 * time.Second
	httpIdleTimeout       = 60 * time.Second
	serverShutdownTimeout = 5 * time.Second
	// multipartOverhead leaves room for boundaries and headers around the file.
	multipartOverhead = 64 << 10
)

// Ingester runs one upload through the pipeline.
type Ingester interface {
	Run(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

type Server struct {
	cfg        *config.Config
	ingester   Ingester
	monitoring *monitoring.Service
	router     *gin.Engine
	driver     string
}

// NewServer builds the router for cfg. mon may be nil.
func NewServer(ctx context.Context, cfg *config.Config, ingester Ingester, mon *monitoring.Service) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: configuration is required")
	}
	if ingester == nil {
		return nil, errors.New("server: ingester is required")
	}
	s := &Server{cfg: cfg, ingester: ingester, monitoring: mon, driver: cfg.Database.Driver}
	if err := s.buildRouter(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(ctx context.Context) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	if s.monitoring != nil {
		r.Use(s.monitoring.GinMiddleware(ctx))
	}
	r.SetHTMLTemplate(tmpl)
	RegisterRoutes(r, s)
	if s.monitoring != nil && s.cfg.Monitoring.Enabled {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	s.router = r
	return nil
}

// RegisterRoutes mounts the form, upload and health routes.
func RegisterRoutes(r *gin.Engine, s *Server) {
	r.GET("/", s.handleForm)
	r.GET("/health", s.handleHealth)
	r.POST("/upload", BodySizeLimiter(s.cfg.Ingest.MaxUploadBytes+multipartOverhead), s.handleUpload)
}

func (s *Server) address() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

func (s *Server) createHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.address(),
		Handler:           s.router,
		ReadHeaderTimeout: httpReadTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      s.writeTimeout(),
		IdleTimeout:       httpIdleTimeout,
	}
}

// writeTimeout leaves the whole-run timeout room to finish before the
// connection is cut.
func (s *Server) writeTimeout() time.Duration {
	wt := s.cfg.Server.Timeout
	if it := s.cfg.Ingest.Timeout; it > 0 && it+httpReadTimeout > wt {
		wt = it + httpReadTimeout
	}
	return wt
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	srv := s.createHTTPServer()
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", srv.Addr, err)
	}
	log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", ln.Addr()))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Debug("Received shutdown signal, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.monitoring != nil {
		if err := s.monitoring.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down monitoring", "error", err)
		}
	}
	log.Info("Server shutdown completed successfully")
	return nil
}
