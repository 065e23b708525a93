package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// PendingAuth is the state of one user's in-progress consent flow.
type PendingAuth struct {
	UserID      string
	DisplayName string
	State       string
	Started     time.Time
}

// Flow tracks pending authorizations keyed by the OAuth state value. The
// map is always initialized; absence of a pending flow is a lookup miss,
// never a nil map.
type Flow struct {
	oauthConfig *oauth2.Config

	mu      sync.Mutex
	pending map[string]PendingAuth
}

// NewFlow creates an empty pending-authorization registry.
func NewFlow(oauthConfig *oauth2.Config) *Flow {
	return &Flow{
		oauthConfig: oauthConfig,
		pending:     make(map[string]PendingAuth),
	}
}

// Begin starts a consent flow for the user and returns the URL the user
// must visit. A second Begin for the same user supersedes the first.
func (f *Flow) Begin(userID, displayName string) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Drop any earlier pending flow for this user.
	for s, p := range f.pending {
		if p.UserID == userID {
			delete(f.pending, s)
		}
	}

	f.pending[state] = PendingAuth{
		UserID:      userID,
		DisplayName: displayName,
		State:       state,
		Started:     time.Now(),
	}

	return f.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Take resolves and removes the pending flow for a state value. Returns
// false for unknown or already-consumed states.
func (f *Flow) Take(state string) (PendingAuth, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.pending[state]
	if ok {
		delete(f.pending, state)
	}
	return p, ok
}

// Cancel discards the user's pending flow, if any.
func (f *Flow) Cancel(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for s, p := range f.pending {
		if p.UserID == userID {
			delete(f.pending, s)
		}
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state value: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
