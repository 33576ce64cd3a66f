// Package registry provides a ticket parser registry for dispatching
// document pages to the parsers that understand their layout.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"uzpass/internal/document"
	"uzpass/internal/ticket"
)

// ErrNoParser is returned when no registered parser accepts a page.
var ErrNoParser = errors.New("no parser accepted the page")

// Parser is implemented by each ticket layout parser.
type Parser interface {
	// Name returns the parser's unique identifier.
	Name() string

	// Sources returns which document sources this parser handles.
	Sources() []document.Source

	// QuickCheck performs a fast string check before tokenising.
	// Returns true if the page MIGHT be parseable (false = definitely skip).
	QuickCheck(text string) bool

	// Priority determines order when multiple parsers handle the same source.
	// Lower number = checked first.
	Priority() int

	// Parse extracts a ticket from the page or reports why it could not.
	Parse(page *document.Page) (ticket.Ticket, error)
}

// Match is a successful dispatch: the ticket and the parser that produced it.
type Match struct {
	Parser string
	Ticket ticket.Ticket
}

// Registry holds registered parsers organised by source. A Registry carries
// no process-wide state; build one per application with New.
type Registry struct {
	mu sync.RWMutex

	// bySource maps sources to parser slices, sorted by Priority (ascending)
	bySource map[document.Source][]Parser

	// sorted tracks whether parsers have been sorted
	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		bySource: make(map[document.Source][]Parser),
	}
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, source := range p.Sources() {
		r.bySource[source] = append(r.bySource[source], p)
	}
	r.sorted = false
}

// Sort sorts all parser slices by priority. Call before dispatching.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	for source := range r.bySource {
		parsers := r.bySource[source]
		sort.SliceStable(parsers, func(i, j int) bool {
			return parsers[i].Priority() < parsers[j].Priority()
		})
	}

	r.sorted = true
}

// Dispatch routes a page to the parsers registered for its source, in
// priority order, and returns the first ticket produced. When every candidate
// fails, the error of the first candidate is returned, prefixed with its name.
// Note: Sort() should be called before Dispatch(); otherwise parsers run in
// registration order.
func (r *Registry) Dispatch(page *document.Page) (Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, p := range r.bySource[page.Source] {
		// Quick check before tokenising
		if !p.QuickCheck(page.Text) {
			continue
		}
		t, err := p.Parse(page)
		if err == nil {
			return Match{Parser: p.Name(), Ticket: t}, nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", p.Name(), err)
		}
	}

	if firstErr != nil {
		return Match{}, firstErr
	}
	return Match{}, fmt.Errorf("%w (source %q)", ErrNoParser, page.Source)
}

// Trace runs every Traceable parser registered for the page's source and
// returns their traces, regardless of QuickCheck outcome.
func (r *Registry) Trace(page *document.Page) []*TraceResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var traces []*TraceResult
	for _, p := range r.bySource[page.Source] {
		if tp, ok := p.(Traceable); ok {
			traces = append(traces, tp.ParseWithTrace(page))
		}
	}
	return traces
}

// RegisteredSources returns all sources that have parsers registered.
func (r *Registry) RegisteredSources() []document.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedSources(r.bySource)
}

// AllParsers returns all registered parsers, each once.
// Parsers registered for multiple sources are only listed once.
func (r *Registry) AllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Parser
	for _, source := range sortedSources(r.bySource) {
		for _, p := range r.bySource[source] {
			if !seen[p.Name()] {
				seen[p.Name()] = true
				result = append(result, p)
			}
		}
	}
	return result
}

// ParserCount returns the total number of unique registered parsers.
func (r *Registry) ParserCount() int {
	return len(r.AllParsers())
}

func sortedSources(m map[document.Source][]Parser) []document.Source {
	sources := make([]document.Source, 0, len(m))
	for s := range m {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
