package calendar

import (
	"time"

	"github.com/chatcal/chatcal/internal/store"

	"google.golang.org/api/calendar/v3"
)

// FromShared builds the remote calendar event for a shared event. Start
// and end are expressed in the community's fixed-offset zone so every
// user's copy shows the announced wall-clock time.
func FromShared(event store.SharedEvent, loc *time.Location) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.In(loc).Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.In(loc).Format(time.RFC3339),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: true,
		},
	}
}
