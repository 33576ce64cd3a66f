// Package ticket provides the structured railway ticket model extracted from
// ticket text, together with its builder and error kinds.
package ticket

import "time"

// Ticket is a fully populated railway ticket. It is built once per parsed page
// and never modified afterwards.
type Ticket struct {
	ID                 string    `json:"id"`
	PassengerName      string    `json:"passenger_name"`
	TrainNumber        string    `json:"train_number"`
	Coach              string    `json:"coach"`
	Seat               string    `json:"seat"`
	OriginStation      string    `json:"origin_station"`
	DestinationStation string    `json:"destination_station"`
	DepartureAt        time.Time `json:"departure_at"` // UTC.
	ArrivalAt          time.Time `json:"arrival_at"`   // UTC.
}

// Fields holds the raw values located by a parser before post-processing.
// Train, Coach and Seat may carry trailing text (e.g. "743 К"); Build keeps
// only their first whitespace-delimited token.
type Fields struct {
	UID         string
	Name        string
	Train       string
	Coach       string
	Seat        string
	Origin      string
	Destination string
	Departure   time.Time
	Arrival     time.Time
}
