package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// EventStore is the on-disk mapping from generated event id to shared
// event record. Every mutation rewrites the file synchronously.
type EventStore struct {
	path string

	mu     sync.Mutex
	events map[string]SharedEvent
}

// NewEventStore opens the shared event file at path, creating an empty
// store if the file does not exist yet.
func NewEventStore(path string) (*EventStore, error) {
	s := &EventStore{
		path:   path,
		events: make(map[string]SharedEvent),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read event store: %w", err)
	}

	if err := json.Unmarshal(data, &s.events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event store: %w", err)
	}

	return s, nil
}

// persist rewrites the event file. Callers must hold s.mu.
func (s *EventStore) persist() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write event store: %w", err)
	}

	return nil
}

// Create assigns a fresh random id to the event, persists it, and returns
// the id. Collisions across random UUIDs are treated as negligible.
func (s *EventStore) Create(event SharedEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = uuid.NewString()
	s.events[event.ID] = event
	if err := s.persist(); err != nil {
		delete(s.events, event.ID)
		return "", err
	}

	return event.ID, nil
}

// Get returns the shared event with the given id, if it exists.
func (s *EventStore) Get(eventID string) (SharedEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	return event, ok
}

// Count returns the number of live shared events.
func (s *EventStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// AttachScheduleRef records the external schedule reference on an existing
// event. Attaching to a deleted event is reported as an error.
func (s *EventStore) AttachScheduleRef(eventID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("no shared event with id %s", eventID)
	}
	event.ScheduleRef = ref
	s.events[eventID] = event
	return s.persist()
}

// Delete removes the shared event record. Deletion is terminal: the id is
// never reused and affordances referencing it become invalid. Deleting an
// already-absent event is a no-op.
func (s *EventStore) Delete(eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return nil
	}
	delete(s.events, eventID)
	return s.persist()
}
