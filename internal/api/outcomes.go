package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultFailureWindow is the reporting window when no since is given.
const defaultFailureWindow = 24 * time.Hour

// handleFailureKinds reports failed pages by error kind. The since query
// parameter is an RFC 3339 time or a duration back from now.
func (s *Server) handleFailureKinds(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-defaultFailureWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			since = time.Now().UTC().Add(-d)
		} else if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		} else {
			writeError(w, http.StatusBadRequest, "Invalid since, use RFC 3339 or a duration like 24h")
			return
		}
	}

	kinds, err := s.outcomes.FailureKinds(r.Context(), since)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failure kinds query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"since": since.UTC().Format(time.RFC3339),
		"kinds": kinds,
	})
}

func (s *Server) handleSubmissionOutcomes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	outcomes, err := s.outcomes.SubmissionOutcomes(r.Context(), id)
	if err != nil {
		s.log.ErrorContext(r.Context(), "submission outcomes query failed", "submission_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if len(outcomes) == 0 {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submission_id": id,
		"outcomes":      outcomes,
	})
}
