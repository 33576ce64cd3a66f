package ticket

import "strings"

// Build assembles a Ticket from raw located values. It reduces train, coach
// and seat to their first whitespace-delimited token, normalises the
// identifier and refuses to produce a ticket with an empty string field.
// Departure and arrival are stored in UTC; their order is not validated.
func Build(f Fields) (Ticket, error) {
	t := Ticket{
		ID:                 NormaliseUID(strings.TrimSpace(f.UID)),
		PassengerName:      f.Name,
		TrainNumber:        firstField(f.Train),
		Coach:              firstField(f.Coach),
		Seat:               firstField(f.Seat),
		OriginStation:      f.Origin,
		DestinationStation: f.Destination,
		DepartureAt:        f.Departure.UTC(),
		ArrivalAt:          f.Arrival.UTC(),
	}

	if strings.TrimSpace(f.UID) == "" {
		return Ticket{}, &FieldError{Field: "uid"}
	}

	required := []struct {
		name  string
		value string
	}{
		{"name", t.PassengerName},
		{"train", t.TrainNumber},
		{"coach", t.Coach},
		{"seat", t.Seat},
		{"from", t.OriginStation},
		{"to", t.DestinationStation},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Ticket{}, &FieldError{Field: r.name}
		}
	}

	return t, nil
}

// firstField returns the first whitespace-delimited token of s, or "".
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
