package store

import "time"

// RegisteredUser maps a local chat identity to a remote calendar account.
// The credential blob itself lives in the token store; TokenPath is the
// reference to it.
type RegisteredUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	TokenPath   string `json:"token_path"`
}

// SharedEvent is an announced event, independent of any user's calendar.
// ScheduleRef optionally points at an entry in the community scheduling
// feature; it is attached best-effort after creation.
type SharedEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CreatorID   string    `json:"creator_id"`
	ScheduleRef string    `json:"schedule_ref,omitempty"`
}

// CalendarLink records that one user holds a remote calendar copy of one
// shared event. Title is cached so the copy can be found again by exact
// title after the shared event is gone.
type CalendarLink struct {
	OwnerID       string `json:"owner_id"`
	RemoteEventID string `json:"remote_event_id"`
	SharedEventID string `json:"shared_event_id"`
	Title         string `json:"title"`
}
