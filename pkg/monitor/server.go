package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tarun-kavipurapu/p2p-share/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the prometheus registry on /metrics.
type Server struct {
	Addr string
}

func (s Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Sugar.Infof("[Metrics] serving /metrics on %s", s.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s Server) String() string {
	return "metrics-http"
}
