// Package labeled parses tickets copied as text, where every value follows
// its label in a tab-separated key/value dump.
package labeled

import (
	"strings"

	"uzpass/internal/document"
	"uzpass/internal/patterns"
	"uzpass/internal/registry"
	"uzpass/internal/ticket"
	"uzpass/internal/tokeniser"
)

// lookup locates one ticket field by its label. Offset is the distance from
// the label token to the value token; station labels are followed by a code
// column before the name.
type lookup struct {
	field  string
	label  string
	offset int
}

var lookups = []lookup{
	{"uid", patterns.LabelDocument, 1},
	{"name", patterns.LabelPassenger, 1},
	{"train", patterns.LabelTrain, 1},
	{"from", patterns.LabelDeparture, 2},
	{"coach", patterns.LabelCoach, 1},
	{"to", patterns.LabelDestination, 2},
	{"seat", patterns.LabelSeat, 1},
	{"departure", patterns.LabelDepartureTime, 1},
	{"arrival", patterns.LabelArrivalTime, 1},
}

// FindValue returns the token offset positions after the first token equal to
// label, ignoring case and surrounding whitespace. Offsets below 1 are
// treated as 1.
func FindValue(tokens []string, label string, offset int) (string, error) {
	if offset < 1 {
		offset = 1
	}
	if i := labelIndex(tokens, label, offset); i >= 0 {
		return tokens[i+offset], nil
	}
	return "", &ticket.LabelError{Label: label}
}

// Parser parses labeled ticket text.
type Parser struct{}

func (p *Parser) Name() string               { return "labeled" }
func (p *Parser) Sources() []document.Source { return []document.Source{document.SourceText} }
func (p *Parser) Priority() int              { return 10 }

// QuickCheck rejects single-cell input: a key/value dump has at least one
// tab or line break.
func (p *Parser) QuickCheck(text string) bool {
	return strings.ContainsAny(text, "\t\n")
}

func (p *Parser) Parse(page *document.Page) (ticket.Ticket, error) {
	tokens := tokeniser.Labeled(page.Text)

	values := make(map[string]string, len(lookups))
	for _, l := range lookups {
		v, err := FindValue(tokens, l.label, l.offset)
		if err != nil {
			return ticket.Ticket{}, err
		}
		values[l.field] = v
	}

	return build(values)
}

func build(values map[string]string) (ticket.Ticket, error) {
	departure, err := patterns.ParseTimestamp(values["departure"])
	if err != nil {
		return ticket.Ticket{}, err
	}
	arrival, err := patterns.ParseTimestamp(values["arrival"])
	if err != nil {
		return ticket.Ticket{}, err
	}

	return ticket.Build(ticket.Fields{
		UID:         values["uid"],
		Name:        values["name"],
		Train:       values["train"],
		Coach:       values["coach"],
		Seat:        values["seat"],
		Origin:      values["from"],
		Destination: values["to"],
		Departure:   departure,
		Arrival:     arrival,
	})
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(page *document.Page) *registry.TraceResult {
	trace := &registry.TraceResult{
		ParserName: p.Name(),
	}

	quickCheckPassed := p.QuickCheck(page.Text)
	trace.QuickCheck = &registry.QuickCheck{
		Passed: quickCheckPassed,
	}
	if !quickCheckPassed {
		trace.QuickCheck.Reason = "No tab or line break in text"
		return trace
	}

	tokens := tokeniser.Labeled(page.Text)
	trace.Tokens = tokens

	values := make(map[string]string, len(lookups))
	for _, l := range lookups {
		loc := registry.Locator{Field: l.field, Rule: "label " + l.label, Index: -1}
		if i := labelIndex(tokens, l.label, l.offset); i >= 0 {
			loc.Index = i + l.offset
			loc.Matched = true
			loc.Value = tokens[loc.Index]
			values[l.field] = loc.Value
		} else if trace.Error == "" {
			trace.Error = (&ticket.LabelError{Label: l.label}).Error()
		}
		trace.Locators = append(trace.Locators, loc)
	}

	if trace.Error != "" {
		return trace
	}
	if _, err := build(values); err != nil {
		trace.Error = err.Error()
		return trace
	}
	trace.Matched = true
	return trace
}

// labelIndex returns the index of the first label token that has a value
// offset positions after it, or -1.
func labelIndex(tokens []string, label string, offset int) int {
	for i := 0; i+offset < len(tokens); i++ {
		if patterns.LabelEqual(tokens[i], label) {
			return i
		}
	}
	return -1
}
