package workers

import (
	"context"
	"net/http"
	"time"

	"gobridgerelay/log"
	"gobridgerelay/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Options("/*", CORSHeaders)

	r.Get("/state", api.State)
	r.Get("/health", api.HealthCheck)

	r.Get("/relays/{status}", api.GetRelays)
	r.Get("/blocks", api.GetBlocks)
	r.Get("/balance/{role}", api.Balance)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Worker_HTTP serves the status API until ctx is cancelled
func Worker_HTTP(ctx context.Context, listen string, api *handlers.API) error {
	logger := log.GetLogger()
	logger.Info("Starting HTTP service", "listen", listen)

	server := &http.Server{
		Addr:              listen,
		Handler:           NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("HTTP service started")

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, X-Requested-With")
}
