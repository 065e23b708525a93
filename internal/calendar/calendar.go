package calendar

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// CalendarClient is the interface the sync engine uses against one user's
// remote calendar account.
type CalendarClient interface {
	// AccountEmail returns the identity of the calendar account.
	AccountEmail() (string, error)
	// FindByTitle searches the primary calendar for an event within the
	// time window whose title exactly equals title. Returns nil when no
	// such event exists.
	FindByTitle(timeMin, timeMax time.Time, title string) (*calendar.Event, error)
	// Insert creates the event on the primary calendar and returns the
	// remote event identifier.
	Insert(event *calendar.Event) (string, error)
	// Delete removes the event with the given remote identifier.
	Delete(remoteEventID string) error
}
