package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"uzpass/internal/calendar"
	"uzpass/internal/document"
	"uzpass/internal/extractor"
	"uzpass/internal/pdftext"
	"uzpass/internal/storage"
	"uzpass/internal/ticket"
)

// TicketsResponse is the JSON response of the extraction endpoints.
type TicketsResponse struct {
	SubmissionID string              `json:"submission_id"`
	Tickets      []ticket.Pass       `json:"tickets"`
	Failures     []extractor.Failure `json:"failures"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"parsers": s.reg.ParserCount(),
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.readSubmission(w, r, document.SourceText)
	if !ok {
		return
	}
	s.writeResult(w, s.extract(r.Context(), sub))
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.readSubmission(w, r, document.SourcePDF)
	if !ok {
		return
	}
	s.writeResult(w, s.extract(r.Context(), sub))
}

// handleICS answers with a calendar of the tickets found in the body. The
// body is a PDF when sent as application/pdf or with ?source=pdf, text otherwise.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	source := document.SourceText
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/pdf" || r.URL.Query().Get("source") == string(document.SourcePDF) {
		source = document.SourcePDF
	}

	sub, ok := s.readSubmission(w, r, source)
	if !ok {
		return
	}

	res := s.extract(r.Context(), sub)
	if len(res.Tickets) == 0 {
		s.writeResult(w, res)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tickets.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, calendar.Calendar(res.Tickets...))
}

// readSubmission reads the request body into a submission, recovering the
// text of PDF bodies. It writes the error response itself when it fails.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request, source document.Source) (*document.Submission, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Failed to read body: "+err.Error())
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "Empty body")
		return nil, false
	}

	if source == document.SourceText {
		return document.NewSubmission(source, string(body)), true
	}

	text, err := s.pdf.Extract(r.Context(), bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, pdftext.ErrNoText) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return nil, false
		}
		s.log.ErrorContext(r.Context(), "pdf text extraction failed", "error", err)
		writeError(w, http.StatusBadGateway, "PDF text extraction failed")
		return nil, false
	}
	return document.NewSubmission(source, text), true
}

// extract parses the submission and records its outcomes.
func (s *Server) extract(ctx context.Context, sub *document.Submission) extractor.Result {
	res := extractor.Extract(s.reg, sub)
	s.metrics.ObserveResult(res)

	s.log.InfoContext(ctx, "submission parsed",
		"submission_id", sub.ID,
		"source", sub.Source,
		"pages", res.Stats.Pages,
		"parsed", res.Stats.Parsed,
		"failed", res.Stats.Failed,
	)

	if s.sink != nil {
		if err := s.sink.InsertOutcomes(ctx, storage.OutcomesFrom(res, time.Now())); err != nil {
			s.log.WarnContext(ctx, "record outcomes failed", "submission_id", sub.ID, "error", err)
		}
	}
	return res
}

// writeResult answers 200 when at least one ticket was found, 422 otherwise.
func (s *Server) writeResult(w http.ResponseWriter, res extractor.Result) {
	status := http.StatusOK
	if len(res.Tickets) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, TicketsResponse{
		SubmissionID: res.SubmissionID,
		Tickets:      res.Passes(),
		Failures:     res.Failures,
	})
}
