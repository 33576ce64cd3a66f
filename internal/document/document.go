// Package document provides the submission and page types fed to the ticket parsers.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source is the kind of input a page came from. It selects the parsers that
// may handle the page.
type Source string

const (
	// SourceText is a ticket copied as text: labeled key/value columns.
	SourceText Source = "text"
	// SourcePDF is text recovered from a PDF ticket, one page at a time.
	SourcePDF Source = "pdf"
)

// PageBreak separates pages in text extracted from a PDF document.
const PageBreak = "\f"

// ChatID is a Telegram chat identifier. Queue payloads carry it either as a
// JSON number or as a numeric string; an empty string or null means no chat.
type ChatID int64

func (c *ChatID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = 0
		return nil
	}

	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*c = ChatID(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("chat id: want number or string, got %s", data)
	}
	if s == "" {
		*c = 0
		return nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id %q: %w", s, err)
	}
	*c = ChatID(i)
	return nil
}

// Submission is one document submitted for ticket extraction, e.g. a chat
// message or an uploaded PDF. It is also the JSON payload of the page queue.
type Submission struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	ChatID     ChatID    `json:"chat_id,omitempty"`
	Text       string    `json:"text,omitempty"`
	PDF        []byte    `json:"pdf,omitempty"` // Raw PDF, when text has not been extracted yet.
	ReceivedAt time.Time `json:"received_at"`
}

// NewSubmission creates a submission with a fresh ID.
func NewSubmission(source Source, text string) *Submission {
	return &Submission{
		ID:         uuid.NewString(),
		Source:     source,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
}

// Page is a single unit of text handed to a parser.
type Page struct {
	SubmissionID string `json:"submission_id"`
	Number       int    `json:"number"` // 1-based.
	Source       Source `json:"source"`
	Text         string `json:"text"`
}

// Pages splits the submission text into pages. Text submissions are a single
// page; PDF text is split on PageBreak with empty pages dropped.
func (s *Submission) Pages() []Page {
	if s.Source != SourcePDF {
		if s.Text == "" {
			return nil
		}
		return []Page{{SubmissionID: s.ID, Number: 1, Source: s.Source, Text: s.Text}}
	}

	var pages []Page
	for _, text := range SplitPages(s.Text) {
		pages = append(pages, Page{
			SubmissionID: s.ID,
			Number:       len(pages) + 1,
			Source:       s.Source,
			Text:         text,
		})
	}
	return pages
}

// SplitPages splits PDF-extracted text on the page-break character and drops
// empty pages.
func SplitPages(text string) []string {
	var pages []string
	for _, page := range strings.Split(text, PageBreak) {
		if page == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}
