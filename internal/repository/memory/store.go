// Package memory is an in-process implementation of the repository interfaces.
// It backs the server when STORE_DRIVER=memory and the service-level tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type eventRow struct {
	id          string
	title       string
	description string
	startTime   time.Time
	creatorID   string
	createdAt   time.Time
	// attendees keeps join order; membership is unique.
	attendees []string
}

type userRow struct {
	id           string
	email        string
	name         string
	passwordHash string
	salt         string
	createdAt    time.Time
	updatedAt    time.Time
}

// Store holds users, events and the attendee relation under a single lock,
// so every repository call is atomic with respect to the others.
type Store struct {
	mu      sync.RWMutex
	events  map[string]*eventRow
	users   map[string]*userRow
	byEmail map[string]string
	now     func() time.Time
	newID   func() string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:  make(map[string]*eventRow),
		users:   make(map[string]*userRow),
		byEmail: make(map[string]string),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// userName returns the display name for id; callers hold s.mu.
func (s *Store) userName(id string) string {
	if u, ok := s.users[id]; ok {
		return u.name
	}
	return ""
}
