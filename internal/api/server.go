// Package api provides REST API endpoints for ticket extraction.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"uzpass/internal/logging"
	"uzpass/internal/metrics"
	"uzpass/internal/pdftext"
	"uzpass/internal/registry"
	"uzpass/internal/storage"
)

// Server provides REST API access to the ticket extractor.
type Server struct {
	reg      *registry.Registry
	pdf      pdftext.Extractor
	sink     storage.OutcomeSink
	outcomes storage.OutcomeReader
	metrics  *metrics.Metrics
	log      *slog.Logger

	addr           string
	apiKeys        map[string]bool // Auth is enabled when non-empty.
	allowedOrigins []string
	maxBodyBytes   int64
}

// Config holds configuration for the API server.
type Config struct {
	Addr           string
	APIKeys        []string // List of valid API keys; empty disables auth.
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Deps are the collaborators of the server. Sink, Outcomes and Metrics are
// optional; the outcome routes exist only with Outcomes.
type Deps struct {
	Registry *registry.Registry
	PDF      pdftext.Extractor
	Sink     storage.OutcomeSink
	Outcomes storage.OutcomeReader
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(deps Deps, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		reg:            deps.Registry,
		pdf:            deps.PDF,
		sink:           deps.Sink,
		outcomes:       deps.Outcomes,
		metrics:        deps.Metrics,
		log:            log,
		addr:           cfg.Addr,
		apiKeys:        keys,
		allowedOrigins: origins,
		maxBodyBytes:   maxBody,
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for browser access.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if len(s.apiKeys) > 0 {
				r.Use(s.authMiddleware)
			}
			r.Post("/tickets/text", s.handleText)
			r.Post("/tickets/pdf", s.handlePDF)
			r.Post("/tickets/ics", s.handleICS)

			if s.outcomes != nil {
				r.Get("/outcomes/failures", s.handleFailureKinds)
				r.Get("/submissions/{id}/outcomes", s.handleSubmissionOutcomes)
			}
		})
	})

	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", "addr", s.addr, "auth", len(s.apiKeys) > 0)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("api server stopped")
	return nil
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
