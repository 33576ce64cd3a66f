package patterns

import (
	"strings"
	"time"

	"uzpass/internal/ticket"
)

// TimestampLayout is the day.month.year hour:minute format printed on tickets,
// e.g. "24.12.2021 14:05".
const TimestampLayout = "2.1.2006 15:04"

// TicketZone is the zone ticket times are printed in: Eastern European Time
// as a fixed UTC+2 offset. Summer time is deliberately not applied.
var TicketZone = time.FixedZone("EET", 2*60*60)

// ParseTimestamp parses a ticket date-time in TicketZone and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), TicketZone)
	if err != nil {
		return time.Time{}, &ticket.TimestampError{Input: s}
	}
	return t.UTC(), nil
}

// TryParseTimestamp reports whether s is a ticket date-time, returning the
// parsed UTC value when it is.
func TryParseTimestamp(s string) (time.Time, bool) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
