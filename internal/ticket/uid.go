package ticket

import "strings"

// NormaliseUID collapses a hyphen-delimited ticket identifier into its
// canonical three-segment form. Later ticket layouts insert extra segments
// between the first and the last; those are concatenated into the middle one.
//
//	"A-B-C-D-E" -> "A-BCD-E"
//	"A-B-C"     -> "A-B-C"
//	"A-B"       -> "A--B"
//	"A"         -> "A--"
func NormaliseUID(raw string) string {
	parts := strings.Split(raw, "-")

	first := parts[0]
	var middle, last string
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	if len(parts) > 2 {
		middle = strings.Join(parts[1:len(parts)-1], "")
	}

	return first + "-" + middle + "-" + last
}
