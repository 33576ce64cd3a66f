package ticket

import "time"

// PassTimeLayout is the ISO-8601 layout with an explicit UTC offset expected
// by the pass-issuance API.
const PassTimeLayout = "2006-01-02T15:04:05+00:00"

// Pass is the payload sent to the pass-issuance API for one ticket.
type Pass struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	Train          string `json:"train"`
	RelevantDate   string `json:"relevant_date"`
	ExpirationDate string `json:"expiration_date"`
	From           string `json:"from"`
	To             string `json:"to"`
	Seat           string `json:"seat"`
	Coach          string `json:"coach"`
}

// Pass converts the ticket to its pass-issuance payload.
func (t Ticket) Pass() Pass {
	return Pass{
		UID:            t.ID,
		Name:           t.PassengerName,
		Train:          t.TrainNumber,
		RelevantDate:   formatUTC(t.DepartureAt),
		ExpirationDate: formatUTC(t.ArrivalAt),
		From:           t.OriginStation,
		To:             t.DestinationStation,
		Seat:           t.Seat,
		Coach:          t.Coach,
	}
}

func formatUTC(t time.Time) string {
	return t.UTC().Format(PassTimeLayout)
}
