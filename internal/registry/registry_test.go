package registry

import (
	"errors"
	"strings"
	"testing"

	"uzpass/internal/document"
	"uzpass/internal/ticket"
)

type fakeParser struct {
	name     string
	sources  []document.Source
	priority int
	prefix   string // QuickCheck passes when the text has this prefix.
	err      error
	calls    int
}

func (p *fakeParser) Name() string                 { return p.name }
func (p *fakeParser) Sources() []document.Source   { return p.sources }
func (p *fakeParser) Priority() int                { return p.priority }
func (p *fakeParser) QuickCheck(text string) bool  { return strings.HasPrefix(text, p.prefix) }
func (p *fakeParser) Parse(page *document.Page) (ticket.Ticket, error) {
	p.calls++
	if p.err != nil {
		return ticket.Ticket{}, p.err
	}
	return ticket.Ticket{ID: p.name}, nil
}

func (p *fakeParser) ParseWithTrace(page *document.Page) *TraceResult {
	return &TraceResult{ParserName: p.name, Matched: p.err == nil}
}

func TestDispatch_PriorityOrder(t *testing.T) {
	r := New()
	slow := &fakeParser{name: "slow", sources: []document.Source{document.SourcePDF}, priority: 50}
	fast := &fakeParser{name: "fast", sources: []document.Source{document.SourcePDF}, priority: 10}
	r.Register(slow)
	r.Register(fast)
	r.Sort()

	m, err := r.Dispatch(&document.Page{Source: document.SourcePDF, Text: "x"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if m.Parser != "fast" || m.Ticket.ID != "fast" {
		t.Errorf("Dispatch() = %+v, want parser fast", m)
	}
	if slow.calls != 0 {
		t.Errorf("slow parser called %d times, want 0", slow.calls)
	}
}

func TestDispatch_FallsThroughOnError(t *testing.T) {
	r := New()
	failing := &fakeParser{name: "failing", sources: []document.Source{document.SourceText}, priority: 1, err: ticket.ErrNoTimeFound}
	ok := &fakeParser{name: "ok", sources: []document.Source{document.SourceText}, priority: 2}
	r.Register(ok)
	r.Register(failing)
	r.Sort()

	m, err := r.Dispatch(&document.Page{Source: document.SourceText, Text: "x"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if m.Parser != "ok" {
		t.Errorf("Parser = %q, want ok", m.Parser)
	}
}

func TestDispatch_FirstErrorReturned(t *testing.T) {
	r := New()
	r.Register(&fakeParser{name: "a", sources: []document.Source{document.SourcePDF}, priority: 1, err: ticket.ErrNoTimeFound})
	r.Register(&fakeParser{name: "b", sources: []document.Source{document.SourcePDF}, priority: 2, err: ticket.ErrEmptyField})
	r.Sort()

	_, err := r.Dispatch(&document.Page{Source: document.SourcePDF})
	if !errors.Is(err, ticket.ErrNoTimeFound) {
		t.Fatalf("Dispatch() error = %v, want ErrNoTimeFound", err)
	}
	if !strings.HasPrefix(err.Error(), "a: ") {
		t.Errorf("error = %q, want parser name prefix", err)
	}
}

func TestDispatch_NoParser(t *testing.T) {
	r := New()
	p := &fakeParser{name: "pdf", sources: []document.Source{document.SourcePDF}, prefix: "%"}
	r.Register(p)

	tests := []struct {
		name string
		page document.Page
	}{
		{"unregistered source", document.Page{Source: document.SourceText, Text: "%x"}},
		{"quick check rejects", document.Page{Source: document.SourcePDF, Text: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Dispatch(&tt.page)
			if !errors.Is(err, ErrNoParser) {
				t.Errorf("Dispatch() error = %v, want ErrNoParser", err)
			}
		})
	}
	if p.calls != 0 {
		t.Errorf("Parse called %d times, want 0", p.calls)
	}
}

func TestTrace(t *testing.T) {
	r := New()
	r.Register(&fakeParser{name: "a", sources: []document.Source{document.SourcePDF}, prefix: "never"})

	traces := r.Trace(&document.Page{Source: document.SourcePDF, Text: "x"})
	if len(traces) != 1 || traces[0].ParserName != "a" {
		t.Errorf("Trace() = %+v, want one trace from a", traces)
	}
}

func TestAllParsers_Deduplicates(t *testing.T) {
	r := New()
	both := &fakeParser{name: "both", sources: []document.Source{document.SourcePDF, document.SourceText}}
	r.Register(both)
	r.Register(&fakeParser{name: "pdf", sources: []document.Source{document.SourcePDF}})

	if got := r.ParserCount(); got != 2 {
		t.Errorf("ParserCount() = %d, want 2", got)
	}
	sources := r.RegisteredSources()
	if len(sources) != 2 || sources[0] != document.SourcePDF || sources[1] != document.SourceText {
		t.Errorf("RegisteredSources() = %v", sources)
	}
}
