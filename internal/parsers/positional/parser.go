// Package positional parses tickets from text recovered from a PDF, where
// labels may be missing, reordered or duplicated and fields are found by
// their position relative to a few anchor rows.
package positional

import (
	"strings"

	"uzpass/internal/document"
	"uzpass/internal/patterns"
	"uzpass/internal/registry"
	"uzpass/internal/ticket"
	"uzpass/internal/tokeniser"
)

// Fixed row positions of the PDF layout.
const (
	UIDIndex          = 7
	NameIndex         = 10
	NameFallbackIndex = 12

	// MaxTimeGap is the largest distance between the departure and arrival rows.
	MaxTimeGap = 4

	trainOffset = 2
	coachOffset = 3
	seatOffset  = 4
)

// StationIndex returns the index of the first station row, or -1.
// The destination row follows it.
func StationIndex(tokens []string) int {
	for i, tok := range tokens {
		if patterns.IsStationRow(tok) {
			return i
		}
	}
	return -1
}

// TrainMarkerIndex returns the index of the first token starting with the
// train marker, or -1.
func TrainMarkerIndex(tokens []string) int {
	for i, tok := range tokens {
		if patterns.IsTrainMarker(tok) {
			return i
		}
	}
	return -1
}

// TimePair returns the indices of the departure and arrival rows. Gaps are
// tried from 1 to MaxTimeGap and the first pair of timestamps at the
// smallest gap wins.
func TimePair(tokens []string) (departure, arrival int, err error) {
	for gap := 1; gap <= MaxTimeGap; gap++ {
		for i := 0; i+gap < len(tokens); i++ {
			if _, ok := patterns.TryParseTimestamp(tokens[i]); !ok {
				continue
			}
			if _, ok := patterns.TryParseTimestamp(tokens[i+gap]); ok {
				return i, i + gap, nil
			}
		}
	}
	return -1, -1, ticket.ErrNoTimeFound
}

// NameIndexFor returns the row holding the passenger name. Layouts that print
// the disclaimer at NameIndex carry the name after the passenger label; when
// the chosen row is blank or holds the departure label, the name sits at
// NameFallbackIndex.
func NameIndexFor(tokens []string) int {
	idx := NameIndex
	if idx < len(tokens) && tokens[idx] == patterns.Disclaimer {
		for i, tok := range tokens {
			if tok == patterns.LabelPassenger {
				idx = i + 1
			}
		}
	}
	if idx < len(tokens) && (tokens[idx] == "" || tokens[idx] == patterns.LabelDeparture) {
		idx = NameFallbackIndex
	}
	return idx
}

// Parser parses PDF ticket pages.
type Parser struct{}

func (p *Parser) Name() string               { return "positional" }
func (p *Parser) Sources() []document.Source { return []document.Source{document.SourcePDF} }
func (p *Parser) Priority() int              { return 10 }

// QuickCheck requires enough lines to reach the UID row.
func (p *Parser) QuickCheck(text string) bool {
	return strings.Count(text, "\n") >= UIDIndex
}

func (p *Parser) Parse(page *document.Page) (ticket.Ticket, error) {
	tokens := tokeniser.Positional(page.Text)

	loc := locate(tokens)
	// A page without a time pair is not a ticket at all; report that ahead
	// of any row that happens to be missing.
	if loc.timeErr != nil {
		return ticket.Ticket{}, loc.timeErr
	}
	for _, l := range loc.locators {
		if l.err != nil {
			return ticket.Ticket{}, l.err
		}
	}
	return loc.build()
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
		trace.QuickCheck.Reason = "Fewer lines than the UID row"
		return trace
	}

	tokens := tokeniser.Positional(page.Text)
	trace.Tokens = tokens

	loc := locate(tokens)
	for _, l := range loc.locators {
		trace.Locators = append(trace.Locators, registry.Locator{
			Field:   l.field,
			Rule:    l.rule,
			Index:   l.index,
			Matched: l.err == nil,
			Value:   l.value,
		})
		if l.err != nil && trace.Error == "" {
			trace.Error = l.err.Error()
		}
	}
	if loc.timeErr != nil {
		trace.Error = loc.timeErr.Error()
	}
	if trace.Error != "" {
		return trace
	}

	if _, err := loc.build(); err != nil {
		trace.Error = err.Error()
		return trace
	}
	trace.Matched = true
	return trace
}

// locator is the outcome of one positional lookup.
type locator struct {
	field string
	rule  string
	index int
	value string
	err   error
}

type located struct {
	locators []locator
	values   map[string]string
	timeErr  error
}

// locate runs every heuristic over the tokens in a fixed order: stations,
// train marker, time pair, name, UID. Lookups that fail carry their error;
// the rest still resolve so a trace shows the whole picture.
func locate(tokens []string) located {
	loc := located{values: make(map[string]string)}

	add := func(field, rule string, i int) {
		l := locator{field: field, rule: rule, index: i}
		l.value, l.err = at(tokens, field, i)
		if l.err == nil {
			loc.values[field] = l.value
		}
		loc.locators = append(loc.locators, l)
	}

	station := StationIndex(tokens)
	add("from", "station row", station)
	add("to", "station row +1", offset(station, 1))

	marker := TrainMarkerIndex(tokens)
	add("train", "train marker +2", offset(marker, trainOffset))
	add("coach", "train marker +3", offset(marker, coachOffset))
	add("seat", "train marker +4", offset(marker, seatOffset))

	dep, arr, err := TimePair(tokens)
	if err != nil {
		loc.timeErr = err
		loc.locators = append(loc.locators,
			locator{field: "departure", rule: "time pair", index: -1, err: err},
			locator{field: "arrival", rule: "time pair", index: -1, err: err},
		)
	} else {
		add("departure", "time pair", dep)
		add("arrival", "time pair", arr)
	}

	add("name", "name row", NameIndexFor(tokens))
	add("uid", "fixed row", UIDIndex)

	return loc
}

func (loc located) build() (ticket.Ticket, error) {
	departure, err := patterns.ParseTimestamp(loc.values["departure"])
	if err != nil {
		return ticket.Ticket{}, err
	}
	arrival, err := patterns.ParseTimestamp(loc.values["arrival"])
	if err != nil {
		return ticket.Ticket{}, err
	}

	return ticket.Build(ticket.Fields{
		UID:         loc.values["uid"],
		Name:        loc.values["name"],
		Train:       loc.values["train"],
		Coach:       loc.values["coach"],
		Seat:        loc.values["seat"],
		Origin:      patterns.StationName(loc.values["from"]),
		Destination: patterns.StationName(loc.values["to"]),
		Departure:   departure,
		Arrival:     arrival,
	})
}

// at returns tokens[i] or an IndexError naming the field.
func at(tokens []string, field string, i int) (string, error) {
	if i < 0 || i >= len(tokens) {
		return "", &ticket.IndexError{Field: field, Index: i, Len: len(tokens)}
	}
	return tokens[i], nil
}

// offset shifts an anchor index, keeping -1 for an anchor that was not found.
func offset(anchor, n int) int {
	if anchor < 0 {
		return -1
	}
	return anchor + n
}
