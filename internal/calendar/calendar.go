// Package calendar exports tickets as iCalendar events.
package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"uzpass/internal/ticket"
)

const productID = "-//uzpass//railway tickets//UK"

// StationName simplifies a station name as printed on the ticket to title
// case: "КИЇВ-ПАСАЖИРСЬКИЙ" becomes "Київ-Пасажирський".
func StationName(name string) string {
	return cases.Title(language.Ukrainian).String(strings.ToLower(strings.TrimSpace(name)))
}

// Title is the event title for a ticket.
func Title(t ticket.Ticket) string {
	return "Поезд " + StationName(t.OriginStation) + " - " + StationName(t.DestinationStation)
}

// AddEvent adds the trip of a ticket to the calendar.
func AddEvent(cal *ics.Calendar, t ticket.Ticket, stamp time.Time) *ics.VEvent {
	event := cal.AddEvent(t.ID + "@uzpass")
	event.SetDtStampTime(stamp)
	event.SetStartAt(t.DepartureAt)
	event.SetEndAt(t.ArrivalAt)
	event.SetSummary(Title(t))
	event.SetLocation(StationName(t.OriginStation))
	event.SetDescription("Поїзд " + t.TrainNumber + ", вагон " + t.Coach + ", місце " + t.Seat)
	return event
}

// Calendar serialises one event per ticket into an iCalendar document.
func Calendar(tickets ...ticket.Ticket) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	now := time.Now().UTC()
	for _, t := range tickets {
		AddEvent(cal, t, now)
	}
	return cal.Serialize()
}
