// Package patterns provides the fixed ticket vocabulary and shared helpers for
// locating ticket fields in tokenised text.
package patterns

import "regexp"

// Field labels printed on Ukrzaliznytsia tickets. The set is closed: a new
// ticket layout means updating these constants, not configuration.
const (
	LabelDocument      = "ПОСАДОЧНИЙ ДОКУМЕНТ"
	LabelPassenger     = "Прізвище, Ім’я"
	LabelTrain         = "Поїзд"
	LabelDeparture     = "Відправлення"
	LabelCoach         = "Вагон"
	LabelDestination   = "Призначення"
	LabelSeat          = "Місце"
	LabelDepartureTime = "Дата/час відпр."
	LabelArrivalTime   = "Дата/час приб."
)

// TrainMarker starts the row two lines above the train number in PDF layouts.
const TrainMarker = "ФК:"

// Disclaimer is printed where the passenger name used to be in later PDF layouts.
const Disclaimer = "ЦЕЙ ПОСАДОЧНИЙ ДОКУМЕНТ Є ПІДСТАВОЮ ДЛЯ ПРОЇЗДУ"

// StationCodeLen is the number of digits of a station code.
const StationCodeLen = 7

// StationRowPattern matches a station row: a 7-digit station code followed by
// whitespace and the station name, e.g. "2200001 КИЇВ-ПАСАЖИРСЬКИЙ".
var StationRowPattern = regexp.MustCompile(`^\p{Nd}{7}[\s\p{Z}]`)
