package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/khakasnews/internal/logger"
	"github.com/deusflow/khakasnews/internal/metrics"
)

// NewRouter constructs a Gin engine serving /health and /metrics from m.
func NewRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { handleHealth(c, m) })
	r.GET("/metrics", func(c *gin.Context) { c.JSON(http.StatusOK, m.GetStats()) })
	return r
}

func handleHealth(c *gin.Context, m *metrics.Metrics) {
	stats := m.GetStats()

	status, code := "ok", http.StatusOK
	if !m.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

// Run serves the monitoring endpoints on addr until ctx is canceled.
func Run(ctx context.Context, addr string, m *metrics.Metrics, log *slog.Logger) error {
	log = logger.Component(log, "monitor")
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting monitoring server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("stopping monitoring server")
		return srv.Shutdown(shutdownCtx)
	}
}
