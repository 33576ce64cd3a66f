package patterns

import "strings"

// IsStationRow reports whether a token is a station row: a 7-digit station
// code, whitespace, then the station name.
func IsStationRow(token string) bool {
	return StationRowPattern.MatchString(token)
}

// StationName returns the station name from a station row. The code is
// dropped and the remaining words are joined without separator, matching how
// stations are registered with the pass template.
//
//	"2200001 КИЇВ-ПАСАЖИРСЬКИЙ" -> "КИЇВ-ПАСАЖИРСЬКИЙ"
func StationName(row string) string {
	fields := strings.Fields(row)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], "")
}

// IsTrainMarker reports whether a token opens the train/coach/seat block.
func IsTrainMarker(token string) bool {
	return strings.HasPrefix(strings.TrimSpace(token), TrainMarker)
}

// LabelEqual compares a token to a label ignoring case and surrounding whitespace.
func LabelEqual(token, label string) bool {
	return strings.EqualFold(strings.TrimSpace(token), strings.TrimSpace(label))
}
