// Package extractor turns a submitted document into tickets, one page at a
// time. This package is storage-agnostic: callers decide what to do with the
// tickets and the per-page outcomes.
package extractor

import (
	"errors"
	"time"

	"uzpass/internal/document"
	"uzpass/internal/registry"
	"uzpass/internal/ticket"
)

// KindNoParser is the failure kind of a page no parser accepted.
const KindNoParser = "no_parser"

// Failure records why a page produced no ticket.
type Failure struct {
	Page  int    `json:"page"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// PageOutcome is the result of dispatching one page.
type PageOutcome struct {
	Page     int
	Parser   string // Empty when no parser produced a ticket.
	TicketID string
	Kind     string // Empty on success.
	Err      error
	Duration time.Duration
}

// OK reports whether the page produced a ticket.
func (o PageOutcome) OK() bool { return o.Err == nil }

// Stats counts pages by outcome.
type Stats struct {
	Pages  int `json:"pages"`
	Parsed int `json:"parsed"`
	Failed int `json:"failed"`
}

// Result holds everything extracted from a submission.
type Result struct {
	SubmissionID string          `json:"submission_id"`
	Source       document.Source `json:"source"`
	Tickets      []ticket.Ticket `json:"tickets"`
	Failures     []Failure       `json:"failures"`
	Stats        Stats           `json:"stats"`
	Outcomes     []PageOutcome   `json:"-"`
}

// Extract parses every page of the submission in order. A failed page is
// recorded and skipped; it never stops later pages from being parsed.
func Extract(reg *registry.Registry, sub *document.Submission) Result {
	res := Result{
		SubmissionID: sub.ID,
		Source:       sub.Source,
		Tickets:      []ticket.Ticket{},
		Failures:     []Failure{},
	}

	for _, page := range sub.Pages() {
		res.Stats.Pages++

		start := time.Now()
		m, err := reg.Dispatch(&page)
		outcome := PageOutcome{
			Page:     page.Number,
			Parser:   m.Parser,
			Err:      err,
			Duration: time.Since(start),
		}

		if err != nil {
			outcome.Kind = Kind(err)
			res.Stats.Failed++
			res.Failures = append(res.Failures, Failure{
				Page:  page.Number,
				Kind:  outcome.Kind,
				Error: err.Error(),
			})
		} else {
			outcome.TicketID = m.Ticket.ID
			res.Stats.Parsed++
			res.Tickets = append(res.Tickets, m.Ticket)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}

	return res
}

// Kind returns the failure kind of a dispatch error.
func Kind(err error) string {
	if errors.Is(err, registry.ErrNoParser) {
		return KindNoParser
	}
	return ticket.ErrorKind(err)
}

// Passes returns the presentation form of every extracted ticket.
func (r Result) Passes() []ticket.Pass {
	passes := make([]ticket.Pass, 0, len(r.Tickets))
	for _, t := range r.Tickets {
		passes = append(passes, t.Pass())
	}
	return passes
}
