package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chatcal/chatcal/internal/auth"
	calclient "github.com/chatcal/chatcal/internal/calendar"
	"github.com/chatcal/chatcal/internal/config"
	"github.com/chatcal/chatcal/internal/store"

	"golang.org/x/oauth2"
)

// ClientFactory builds a calendar client from an authenticated HTTP client.
type ClientFactory func(ctx context.Context, httpClient *http.Client) (calclient.CalendarClient, error)

// Engine orchestrates the mapping from shared events to per-user calendar
// copies. All state lives in the injected store handles; the engine itself
// is stateless across operations.
type Engine struct {
	cfg       *config.Config
	oauth     *oauth2.Config
	users     *store.UserRegistry
	events    *store.EventStore
	links     *store.LinkIndex
	scheduler Scheduler
	flow      *auth.Flow

	newClient ClientFactory
	tokens    func(userID string) auth.TokenStore
}

// NewEngine creates an engine over the given stores. Pass NoopScheduler
// when no community scheduling feature is attached.
func NewEngine(cfg *config.Config, oauthConfig *oauth2.Config, users *store.UserRegistry, events *store.EventStore, links *store.LinkIndex, scheduler Scheduler) *Engine {
	return &Engine{
		cfg:       cfg,
		oauth:     oauthConfig,
		users:     users,
		events:    events,
		links:     links,
		scheduler: scheduler,
		flow:      auth.NewFlow(oauthConfig),
		newClient: func(ctx context.Context, httpClient *http.Client) (calclient.CalendarClient, error) {
			return calclient.NewClient(ctx, httpClient)
		},
		tokens: func(userID string) auth.TokenStore {
			return auth.NewUserTokenStore(cfg.DataDir, userID)
		},
	}
}

// clientFor revalidates the user's credential and returns a calendar
// client over it. Called immediately before every remote operation;
// credentials are never assumed fresh.
func (e *Engine) clientFor(ctx context.Context, userID string) (calclient.CalendarClient, error) {
	tokenStore := e.tokens(userID)
	token, err := auth.EnsureValid(ctx, e.oauth, tokenStore)
	if err != nil {
		return nil, err
	}
	return e.newClient(ctx, auth.Client(ctx, e.oauth, tokenStore, token))
}

// Flow exposes the pending-authorization registry to the callback server.
func (e *Engine) Flow() *auth.Flow {
	return e.flow
}

// BeginRegistration starts the consent flow for a user and returns the URL
// the user must visit. Completion arrives through the callback server.
func (e *Engine) BeginRegistration(userID, displayName string) (string, error) {
	return e.flow.Begin(userID, displayName)
}

// CancelRegistration discards the user's pending consent flow, if any.
func (e *Engine) CancelRegistration(userID string) {
	e.flow.Cancel(userID)
}

// CallbackHandler adapts CompleteRegistration for the auth callback server.
func (e *Engine) CallbackHandler() auth.CompleteFunc {
	return func(ctx context.Context, pending auth.PendingAuth, code string) error {
		outcome := e.CompleteRegistration(ctx, pending, code)
		if !outcome.Ok() {
			if outcome.Err != nil {
				return outcome.Err
			}
			return fmt.Errorf("registration failed: %s", outcome.Status)
		}
		return nil
	}
}

// CompleteRegistration exchanges the authorization code, persists the
// credential, resolves the calendar account identity, and records the
// registration. A credential blob is never left behind without a registry
// entry referencing it.
func (e *Engine) CompleteRegistration(ctx context.Context, pending auth.PendingAuth, code string) Outcome {
	tokenStore := e.tokens(pending.UserID)

	token, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return failure(StatusRemoteError, "authorization exchange failed", err)
	}

	if err := tokenStore.SaveToken(token); err != nil {
		return failure(StatusPartialFailure, "authorization succeeded but the credential could not be stored", err)
	}

	client, err := e.newClient(ctx, auth.Client(ctx, e.oauth, tokenStore, token))
	if err != nil {
		e.discardCredential(tokenStore, pending.UserID)
		return failure(StatusRemoteError, "failed to open calendar account", err)
	}

	email, err := client.AccountEmail()
	if err != nil {
		e.discardCredential(tokenStore, pending.UserID)
		return failure(StatusRemoteError, "failed to resolve calendar account identity", err)
	}

	user := store.RegisteredUser{
		ID:          pending.UserID,
		Email:       email,
		DisplayName: pending.DisplayName,
		TokenPath:   auth.UserTokenPath(e.cfg.DataDir, pending.UserID),
	}
	if err := e.users.Register(user); err != nil {
		e.discardCredential(tokenStore, pending.UserID)
		return failure(StatusPartialFailure, "account authorized but the registration could not be recorded", err)
	}

	return success(email)
}

func (e *Engine) discardCredential(tokenStore auth.TokenStore, userID string) {
	if err := tokenStore.DeleteToken(); err != nil {
		log.Printf("Warning: failed to discard credential for user %s: %v", userID, err)
	}
}

// Unregister removes the registry entry and deletes the backing credential.
// The credential goes first so a failure never leaves an orphaned blob
// referenced by nothing.
func (e *Engine) Unregister(ctx context.Context, userID string) Outcome {
	if !e.users.IsRegistered(userID) {
		return failure(StatusNotRegistered, "you are not registered", nil)
	}

	if err := e.tokens(userID).DeleteToken(); err != nil {
		return failure(StatusRemoteError, "failed to delete stored credential", err)
	}

	if err := e.users.Unregister(userID); err != nil {
		return failure(StatusPartialFailure, "credential deleted but the registry entry could not be removed", err)
	}

	return success("unregistered")
}

// CreateSharedEvent records an announced event and returns its generated
// id. Mirroring the event into the community scheduling feature is
// best-effort: a failure is logged and reported as SecondaryErr while the
// announcement itself stands.
func (e *Engine) CreateSharedEvent(ctx context.Context, creatorID string, event store.SharedEvent) (string, Outcome) {
	event.CreatorID = creatorID

	eventID, err := e.events.Create(event)
	if err != nil {
		return "", failure(StatusStorageError, "failed to record shared event", err)
	}
	event.ID = eventID

	outcome := success(eventID)

	ref, err := e.scheduler.CreateSchedule(ctx, event)
	if err != nil {
		log.Printf("Warning: failed to create schedule entry for event %s: %v", eventID, err)
		outcome.SecondaryErr = err
		return eventID, outcome
	}
	if ref != "" {
		if err := e.events.AttachScheduleRef(eventID, ref); err != nil {
			log.Printf("Warning: failed to attach schedule ref to event %s: %v", eventID, err)
			outcome.SecondaryErr = err
		}
	}

	return eventID, outcome
}

// AttachScheduleRef records an external schedule reference on an event.
func (e *Engine) AttachScheduleRef(eventID, ref string) error {
	return e.events.AttachScheduleRef(eventID, ref)
}

// AddToCalendar copies a shared event into the invoking user's calendar.
//
// Before writing, the user's calendar is searched for an event in the same
// window with exactly the same title; a hit means the copy already exists
// (a double click, or a manual entry) and no remote write happens. Two
// genuinely different events sharing a title and window are
// indistinguishable here; that is an accepted limitation, not a bug. A
// failed search is treated as "not found" so a transient query failure
// does not block the copy.
func (e *Engine) AddToCalendar(ctx context.Context, userID, eventID string) Outcome {
	if !e.users.IsRegistered(userID) {
		return failure(StatusNotRegistered, "you are not registered; register your calendar account first", nil)
	}

	event, ok := e.events.Get(eventID)
	if !ok {
		return failure(StatusNotFound, "this event no longer exists", nil)
	}

	client, err := e.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialInvalid) {
			return failure(StatusCredentialInvalid, "your calendar authorization has expired; register again", err)
		}
		return failure(StatusRemoteError, "failed to reach your calendar account", err)
	}

	existing, err := client.FindByTitle(event.Start, event.End, event.Title)
	if err != nil {
		// Fail open: a transient search failure must not block the copy.
		log.Printf("Warning: failed to check calendar of user %s for %q: %v", userID, event.Title, err)
		existing = nil
	}
	if existing != nil {
		return Outcome{Status: StatusAlreadyExists, Detail: "this event is already in your calendar"}
	}

	remoteID, err := client.Insert(calclient.FromShared(event, e.cfg.Location()))
	if err != nil {
		return failure(StatusRemoteError, "your calendar rejected the event", err)
	}

	link := store.CalendarLink{
		OwnerID:       userID,
		RemoteEventID: remoteID,
		SharedEventID: event.ID,
		Title:         event.Title,
	}
	if err := e.links.Add(link); err != nil {
		// The remote copy exists; surfaced distinctly from a clean failure.
		return failure(StatusPartialFailure, "the event was added to your calendar but could not be tracked locally", err)
	}

	return success(remoteID)
}

// RemoveFromCalendar deletes the user's own calendar copy. The remote
// delete happens first; the link is only dropped after it succeeds, so a
// failed remote delete leaves everything intact.
func (e *Engine) RemoveFromCalendar(ctx context.Context, userID, remoteEventID string) Outcome {
	link, ok := e.links.FindByRemote(remoteEventID)
	if !ok {
		return failure(StatusNotFound, "no calendar copy is tracked for this event", nil)
	}
	if link.OwnerID != userID {
		return failure(StatusUnauthorized, "only the owner of a calendar copy can remove it", nil)
	}

	if !e.users.IsRegistered(userID) {
		return failure(StatusNotRegistered, "you are not registered; register your calendar account first", nil)
	}

	client, err := e.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialInvalid) {
			return failure(StatusCredentialInvalid, "your calendar authorization has expired; register again", err)
		}
		return failure(StatusRemoteError, "failed to reach your calendar account", err)
	}

	if err := client.Delete(remoteEventID); err != nil {
		return failure(StatusRemoteError, "your calendar rejected the delete", err)
	}

	if _, err := e.links.Remove(userID, remoteEventID); err != nil {
		return failure(StatusPartialFailure, "the event was removed from your calendar but is still tracked locally", err)
	}

	return success("removed from your calendar")
}

// DeleteSharedEvent removes an announced event. Creator-only. The external
// schedule mirror is deleted best-effort. Other users' calendar copies are
// deliberately untouched: each link owner is offered the explicit
// RemoveAfterSourceDeleted affordance instead (LinkOwners in the outcome),
// rather than having their calendars edited as a side effect.
func (e *Engine) DeleteSharedEvent(ctx context.Context, userID, eventID string) Outcome {
	event, ok := e.events.Get(eventID)
	if !ok {
		return failure(StatusNotFound, "this event no longer exists", nil)
	}
	if event.CreatorID != userID {
		return failure(StatusUnauthorized, "only the creator can delete a shared event", nil)
	}

	var secondaryErr error
	if event.ScheduleRef != "" {
		if err := e.scheduler.DeleteSchedule(ctx, event.ScheduleRef); err != nil {
			log.Printf("Warning: failed to delete schedule entry %s for event %s: %v", event.ScheduleRef, eventID, err)
			secondaryErr = err
		}
	}

	if err := e.events.Delete(eventID); err != nil {
		return failure(StatusPartialFailure, "failed to delete the shared event record", err)
	}

	var owners []string
	seen := make(map[string]bool)
	for _, link := range e.links.BySharedEvent(eventID) {
		if !seen[link.OwnerID] {
			seen[link.OwnerID] = true
			owners = append(owners, link.OwnerID)
		}
	}

	outcome := success("shared event deleted")
	outcome.SecondaryErr = secondaryErr
	outcome.LinkOwners = owners
	return outcome
}

// RemoveAfterSourceDeleted removes the invoking user's calendar copy of a
// shared event whose record is gone. The copy is located by exact title in
// the recorded window when the record still exists, or a wide window
// otherwise; if the remote search finds nothing the stale link is dropped
// anyway, since the copy is already gone.
func (e *Engine) RemoveAfterSourceDeleted(ctx context.Context, userID, sharedEventID string) Outcome {
	if !e.users.IsRegistered(userID) {
		return failure(StatusNotRegistered, "you are not registered; register your calendar account first", nil)
	}

	var link store.CalendarLink
	found := false
	for _, l := range e.links.For(userID) {
		if l.SharedEventID == sharedEventID {
			link = l
			found = true
			break
		}
	}
	if !found {
		return failure(StatusNotFound, "no calendar copy is tracked for this event", nil)
	}

	client, err := e.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialInvalid) {
			return failure(StatusCredentialInvalid, "your calendar authorization has expired; register again", err)
		}
		return failure(StatusRemoteError, "failed to reach your calendar account", err)
	}

	timeMin, timeMax := e.searchWindow(sharedEventID)
	remote, err := client.FindByTitle(timeMin, timeMax, link.Title)
	if err != nil {
		log.Printf("Warning: failed to check calendar of user %s for %q: %v", userID, link.Title, err)
		remote = nil
	}

	if remote != nil {
		if err := client.Delete(remote.Id); err != nil {
			return failure(StatusRemoteError, "your calendar rejected the delete", err)
		}
	}

	if _, err := e.links.Remove(userID, link.RemoteEventID); err != nil {
		return failure(StatusPartialFailure, "the event was removed from your calendar but is still tracked locally", err)
	}

	return success("removed from your calendar")
}

// searchWindow returns the recorded window for a shared event, or a wide
// window when the record is already gone.
func (e *Engine) searchWindow(sharedEventID string) (time.Time, time.Time) {
	if event, ok := e.events.Get(sharedEventID); ok {
		return event.Start, event.End
	}
	now := time.Now()
	return now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0)
}

// Links returns the calendar copies recorded for a user.
func (e *Engine) Links(userID string) []store.CalendarLink {
	return e.links.For(userID)
}

// Lookup returns a user's registration, if any.
func (e *Engine) Lookup(userID string) (store.RegisteredUser, bool) {
	return e.users.Lookup(userID)
}

// IsOwner reports whether userID is the configured community owner. The
// interaction layer gates its administrative commands on this.
func (e *Engine) IsOwner(userID string) bool {
	return e.cfg.OwnerID != "" && userID == e.cfg.OwnerID
}

// ExportICS renders a shared event in iCalendar form for users who want to
// import it by hand instead of registering.
func (e *Engine) ExportICS(eventID string) (string, Outcome) {
	event, ok := e.events.Get(eventID)
	if !ok {
		return "", failure(StatusNotFound, "this event no longer exists", nil)
	}

	ics, err := calclient.EncodeICS(event, e.cfg.Location())
	if err != nil {
		return "", failure(StatusRemoteError, "failed to render the event", err)
	}

	return ics, success(eventID)
}
