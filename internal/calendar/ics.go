package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/chatcal/chatcal/internal/store"

	"github.com/emersion/go-ical"
)

// ToICal renders a shared event as an iCalendar object. This gives users
// who never register a portable way to import the event by hand.
func ToICal(event store.SharedEvent, loc *time.Location) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//chatcal//EN")

	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, event.ID+"@chatcal")
	vevent.Props.SetText(ical.PropSummary, event.Title)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.In(loc))
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.In(loc))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())

	cal.Children = append(cal.Children, vevent)
	return cal
}

// EncodeICS serializes a shared event to the .ics wire format.
func EncodeICS(event store.SharedEvent, loc *time.Location) (string, error) {
	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	if err := enc.Encode(ToICal(event, loc)); err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}
	return buf.String(), nil
}
