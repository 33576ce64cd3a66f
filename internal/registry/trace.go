// Package registry provides tracing interfaces for parser debugging.
package registry

import "uzpass/internal/document"

// TraceResult contains trace information from a parser's attempt to parse a page.
type TraceResult struct {
	ParserName string      // Name of the parser.
	QuickCheck *QuickCheck // QuickCheck result.
	Tokens     []string    // Token stream the locators worked on.
	Locators   []Locator   // Field lookups in the order they ran.
	Matched    bool        // Whether the parser produced a ticket.
	Error      string      // Failure reason when not matched.
}

// QuickCheck contains the result of a parser's quick check.
type QuickCheck struct {
	Passed bool   // Whether the quick check passed.
	Reason string // Optional reason for the result.
}

// Locator contains debug information about one field lookup.
type Locator struct {
	Field   string // Ticket field, e.g. "train", "departure".
	Rule    string // How the field was located, e.g. a label or a heuristic name.
	Index   int    // Token index of the value, -1 if not located.
	Matched bool   // Whether the lookup succeeded.
	Value   string // Raw value found.
}

// Traceable is implemented by parsers that support debug tracing.
// This allows the trace command to show which rows each heuristic picked and
// why a page did or didn't produce a ticket.
type Traceable interface {
	// ParseWithTrace attempts to parse the page and returns detailed trace information.
	ParseWithTrace(page *document.Page) *TraceResult
}
