// Package server exposes a Scorer over JSON HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ezoic/carbonml/internal/scoring"
	"github.com/ezoic/carbonml/internal/training"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// Server routes requests to a shared, read-only Scorer.
type Server struct {
	scorer   *scoring.Scorer
	report   *training.Report
	engine   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
	now      func() time.Time
	logger   log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now, which sets the projection start year.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithReport serves report from GET /v1/model.
func WithReport(report *training.Report) Option {
	return func(s *Server) { s.report = report }
}

// New builds the router. Set the gin mode before calling it.
func New(scorer *scoring.Scorer, opts ...Option) *Server {
	s := &Server{
		scorer:   scorer,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		logger:   log.GetLoggerWithName("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = newMetrics(s.registry)

	r := gin.New()
	r.Use(gin.Recovery(), s.metrics.middleware(), s.logRequests())
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/predict", s.predict)
	v1.POST("/estimate", s.estimate)
	v1.GET("/encodings", s.encodings)
	v1.GET("/model", s.model)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
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
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if cmlErrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return cmlErrors.Wrapf(err, "failed to serve on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cmlErrors.Wrap(err, "shutdown failed")
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
}
