// Package storage records parse outcomes and issued pass references.
// Ticket contents are never stored: an outcome carries the ticket UID only.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"uzpass/internal/extractor"
)

// Outcome statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Outcome is the stored result of parsing one page.
type Outcome struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Source       string    `json:"source"`
	Page         int       `json:"page"`
	Parser       string    `json:"parser,omitempty"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorText    string    `json:"error_text,omitempty"`
	TicketUID    string    `json:"ticket_uid,omitempty"`
	ParsedAt     time.Time `json:"parsed_at"`
}

// OutcomesFrom converts an extraction result into one outcome per page.
func OutcomesFrom(res extractor.Result, parsedAt time.Time) []Outcome {
	outcomes := make([]Outcome, 0, len(res.Outcomes))
	for _, po := range res.Outcomes {
		o := Outcome{
			ID:           uuid.NewString(),
			SubmissionID: res.SubmissionID,
			Source:       string(res.Source),
			Page:         po.Page,
			Parser:       po.Parser,
			Status:       StatusOK,
			TicketUID:    po.TicketID,
			ParsedAt:     parsedAt.UTC(),
		}
		if !po.OK() {
			o.Status = StatusFailed
			o.ErrorKind = po.Kind
			o.ErrorText = po.Err.Error()
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// OutcomeSink receives parse outcomes.
type OutcomeSink interface {
	InsertOutcomes(ctx context.Context, outcomes []Outcome) error
}

// OutcomeReader reports on stored outcomes.
type OutcomeReader interface {
	FailureKinds(ctx context.Context, since time.Time) ([]KindCount, error)
	SubmissionOutcomes(ctx context.Context, submissionID string) ([]Outcome, error)
}

// OutcomeStore is implemented by the SQLite and ClickHouse stores.
type OutcomeStore interface {
	OutcomeSink
	OutcomeReader
}

// KindCount is the number of failed pages of one error kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count uint64 `json:"count"`
}

// Pass is a reference to a pass issued for a chat.
type Pass struct {
	SerialNumber string
	ChatID       int64
	TicketUID    string
	URL          string
	CreatedAt    time.Time
	ClearedAt    *time.Time
}

// PassStore keeps the passes issued to each chat.
type PassStore interface {
	SavePass(ctx context.Context, p Pass) error
	ListPasses(ctx context.Context, chatID int64) ([]Pass, error)
	ClearPasses(ctx context.Context, chatID int64) (int64, error)
}
