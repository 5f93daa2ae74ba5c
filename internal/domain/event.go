package domain

import (
	"context"
	"time"
)

// Attendee is the public summary of a user as carried by events and notifications.
type Attendee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a planned event. The creator is its first attendee and the only user allowed to cancel it.
// swagger:model Event
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	CreatorID   string     `json:"creator_id"`
	Creator     *Attendee  `json:"creator,omitempty"`
	Attendees   []Attendee `json:"attendees"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewEvent returns a new Event owned by creatorID. ID and CreatedAt are set by the repository on create.
func NewEvent(title, description string, startTime time.Time, creatorID string) *Event {
	return &Event{
		Title:       title,
		Description: description,
		StartTime:   startTime.UTC(),
		CreatorID:   creatorID,
		Attendees:   []Attendee{},
	}
}

// HasAttendee reports whether userID is in the attendee set.
func (e *Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// Attendee returns the attendee summary for userID, if present.
func (e *Event) Attendee(userID string) (Attendee, bool) {
	for _, a := range e.Attendees {
		if a.ID == userID {
			return a, true
		}
	}
	return Attendee{}, false
}

// Clone returns a deep copy so cached or stored events are never shared between goroutines.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Creator != nil {
		creator := *e.Creator
		c.Creator = &creator
	}
	c.Attendees = append([]Attendee(nil), e.Attendees...)
	if c.Attendees == nil {
		c.Attendees = []Attendee{}
	}
	return &c
}

// AttendeeOp selects the change applied by EventRepository.UpdateAttendees.
type AttendeeOp int

const (
	// AttendeeAdd inserts the user into the attendee set.
	AttendeeAdd AttendeeOp = iota + 1
	// AttendeeRemove deletes the user from the attendee set.
	AttendeeRemove
)

func (op AttendeeOp) String() string {
	switch op {
	case AttendeeAdd:
		return "add"
	case AttendeeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	// Create stores the event and its creator as first attendee in one transaction.
	// It sets ID, CreatedAt and Attendees on e.
	Create(ctx context.Context, e *Event) error
	// GetByID returns the event row without attendees.
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetWithAttendees returns the event with creator and attendee summaries.
	GetWithAttendees(ctx context.Context, id string) (*Event, error)
	// List returns every event with attendees, ordered by start time ascending.
	List(ctx context.Context) ([]*Event, error)
	// UpdateAttendees applies op atomically and reports whether the attendee set changed.
	// It returns ErrNotFound when the event does not exist.
	UpdateAttendees(ctx context.Context, eventID, userID string, op AttendeeOp) (changed bool, err error)
	// Delete removes the event and, by cascade, its attendee rows.
	Delete(ctx context.Context, id string) error
}

// MembershipService defines the event lifecycle and attendance operations.
// subject is the authenticated user ID, or "" for anonymous callers.
type MembershipService interface {
	CreateEvent(ctx context.Context, subject, title, description string, startTime time.Time) (*Event, error)
	JoinEvent(ctx context.Context, subject, eventID string) (*Event, error)
	LeaveEvent(ctx context.Context, subject, eventID string) (*Event, error)
	CancelEvent(ctx context.Context, subject, eventID string) (bool, error)
	GetEvents(ctx context.Context) ([]*Event, error)
	GetEventByID(ctx context.Context, id string) (*Event, error)
}
