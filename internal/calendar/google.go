package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client is a wrapper around the Google Calendar API service, scoped to one
// user's primary calendar.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client using the provided HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// AccountEmail returns the identity of the authenticated calendar account.
// The primary calendar's id is the account email.
func (c *Client) AccountEmail() (string, error) {
	entry, err := c.service.CalendarList.Get("primary").Do()
	if err != nil {
		return "", fmt.Errorf("failed to get primary calendar: %w", err)
	}
	return entry.Id, nil
}

// FindByTitle searches the primary calendar for an event within the window
// whose title exactly equals title. The text query narrows the candidate
// set; the exact comparison happens here because the API matches
// substrings across several fields.
func (c *Client) FindByTitle(timeMin, timeMax time.Time, title string) (*calendar.Event, error) {
	eventsList, err := c.service.Events.List("primary").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		Q(title).
		SingleEvents(true). // Expand recurring events
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	for _, event := range eventsList.Items {
		if event.Summary == title {
			return event, nil
		}
	}

	return nil, nil
}

// Insert creates a new event on the primary calendar and returns its id.
// Sets sendUpdates="none" to prevent notifications.
func (c *Client) Insert(event *calendar.Event) (string, error) {
	created, err := c.service.Events.Insert("primary", event).
		SendUpdates("none"). // Disable notifications
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	return created.Id, nil
}

// Delete deletes an event from the primary calendar.
func (c *Client) Delete(remoteEventID string) error {
	err := c.service.Events.Delete("primary", remoteEventID).
		SendUpdates("none"). // Disable notifications
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}
