package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// LinkIndex is the on-disk mapping from user id to the calendar copies that
// user has created. There is no reverse index by shared event; lookups in
// that direction scan every user's links.
type LinkIndex struct {
	path string

	mu    sync.Mutex
	links map[string][]CalendarLink
}

// NewLinkIndex opens the link file at path, creating an empty index if the
// file does not exist yet.
func NewLinkIndex(path string) (*LinkIndex, error) {
	idx := &LinkIndex{
		path:  path,
		links: make(map[string][]CalendarLink),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to read link index: %w", err)
	}

	if err := json.Unmarshal(data, &idx.links); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link index: %w", err)
	}

	return idx, nil
}

// persist rewrites the link file. Callers must hold idx.mu.
func (idx *LinkIndex) persist() error {
	data, err := json.MarshalIndent(idx.links, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal link index: %w", err)
	}

	if err := os.WriteFile(idx.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write link index: %w", err)
	}

	return nil
}

// Add records a new calendar link for link.OwnerID.
func (idx *LinkIndex) Add(link CalendarLink) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.links[link.OwnerID] = append(idx.links[link.OwnerID], link)
	return idx.persist()
}

// Remove deletes the link with the given remote event id from ownerID's
// links. Returns false if no such link was recorded.
func (idx *LinkIndex) Remove(ownerID, remoteEventID string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	links := idx.links[ownerID]
	for i, link := range links {
		if link.RemoteEventID == remoteEventID {
			idx.links[ownerID] = append(links[:i], links[i+1:]...)
			if len(idx.links[ownerID]) == 0 {
				delete(idx.links, ownerID)
			}
			return true, idx.persist()
		}
	}

	return false, nil
}

// For returns the calendar links recorded for ownerID.
func (idx *LinkIndex) For(ownerID string) []CalendarLink {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	links := idx.links[ownerID]
	out := make([]CalendarLink, len(links))
	copy(out, links)
	return out
}

// Count returns the total number of recorded links across all users.
func (idx *LinkIndex) Count() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := 0
	for _, links := range idx.links {
		n += len(links)
	}
	return n
}

// FindByRemote scans all users' links for the given remote event id. Used
// to distinguish "not your link" from "no such link".
func (idx *LinkIndex) FindByRemote(remoteEventID string) (CalendarLink, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, links := range idx.links {
		for _, link := range links {
			if link.RemoteEventID == remoteEventID {
				return link, true
			}
		}
	}

	return CalendarLink{}, false
}

// BySharedEvent scans all users' links for copies of the given shared
// event. O(n) over every user's links; there is no reverse index.
func (idx *LinkIndex) BySharedEvent(sharedEventID string) []CalendarLink {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var out []CalendarLink
	for _, links := range idx.links {
		for _, link := range links {
			if link.SharedEventID == sharedEventID {
				out = append(out, link)
			}
		}
	}

	return out
}

// RemoveBySharedEvent drops every user's links to the given shared event
// and returns how many were removed.
func (idx *LinkIndex) RemoveBySharedEvent(sharedEventID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for owner, links := range idx.links {
		kept := links[:0]
		for _, link := range links {
			if link.SharedEventID == sharedEventID {
				removed++
				continue
			}
			kept = append(kept, link)
		}
		if len(kept) == 0 {
			delete(idx.links, owner)
		} else {
			idx.links[owner] = kept
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, idx.persist()
}
