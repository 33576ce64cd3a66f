package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"uzpass/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Router serves /health and, when the worker records metrics, /metrics.
func (w *Worker) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(logging.Middleware(w.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	if w.metrics != nil {
		r.Handle("/metrics", w.metrics.Handler())
	}
	return r
}

// ServeMetrics serves Router on addr until ctx is done.
func (w *Worker) ServeMetrics(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: w.Router(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		w.log.Info("metrics listener starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
