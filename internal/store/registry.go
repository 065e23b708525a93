package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// UserRegistry is the on-disk mapping from local user id to registered
// calendar account. The whole mapping is rewritten on every mutation so a
// restart never loses an acknowledged registration.
type UserRegistry struct {
	path string

	mu    sync.Mutex
	users map[string]RegisteredUser
}

// NewUserRegistry opens the registry file at path, creating an empty
// registry if the file does not exist yet.
func NewUserRegistry(path string) (*UserRegistry, error) {
	r := &UserRegistry{
		path:  path,
		users: make(map[string]RegisteredUser),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read user registry: %w", err)
	}

	if err := json.Unmarshal(data, &r.users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user registry: %w", err)
	}

	return r, nil
}

// persist rewrites the registry file. Callers must hold r.mu.
func (r *UserRegistry) persist() error {
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user registry: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write user registry: %w", err)
	}

	return nil
}

// IsRegistered reports whether the user has a registered calendar account.
func (r *UserRegistry) IsRegistered(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok
}

// Lookup returns the registered user record, if any.
func (r *UserRegistry) Lookup(userID string) (RegisteredUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	return user, ok
}

// Count returns the number of registered users.
func (r *UserRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Register adds or replaces the registration for user.ID. Re-registration
// overwrites the previous entry.
func (r *UserRegistry) Register(user RegisteredUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return r.persist()
}

// Unregister removes the registry entry for userID. Deleting the backing
// credential blob is the caller's responsibility; both deletions together
// make up the user-facing unregister operation.
func (r *UserRegistry) Unregister(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return nil
	}
	delete(r.users, userID)
	return r.persist()
}
