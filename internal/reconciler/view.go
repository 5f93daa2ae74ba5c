// Package reconciler keeps a client's cached event list consistent with the server.
//
// A View is loaded by pulling the event list and then kept current by applying the
// notifications pushed over /ws. Deltas are merged idempotently, so duplicate delivery
// and deltas for events the view never loaded are harmless.
package reconciler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"eventplanner/internal/domain"
)

// Fetcher loads server state.
type Fetcher interface {
	FetchEvents(ctx context.Context) ([]*domain.Event, error)
	FetchEvent(ctx context.Context, id string) (*domain.Event, error)
}

// Action tells the caller what Apply did to the view.
type Action int

const (
	ActionNone Action = iota
	ActionMerged
	ActionRemoved
	ActionRefetched
	// ActionNavigateAway means the focused event was cancelled.
	ActionNavigateAway
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionMerged:
		return "merged"
	case ActionRemoved:
		return "removed"
	case ActionRefetched:
		return "refetched"
	case ActionNavigateAway:
		return "navigate_away"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Option configures a View.
type Option func(*View)

// WithRefetchOnLeave refetches an event on UserLeft instead of merging the delta.
func WithRefetchOnLeave() Option {
	return func(v *View) { v.refetchOnLeave = true }
}

// WithHidePast hides events that started before yesterday, midnight in the clock's location.
func WithHidePast(clock func() time.Time) Option {
	return func(v *View) {
		v.hidePast = true
		if clock != nil {
			v.now = clock
		}
	}
}

// View is a cached event list plus an optional focused event. It is safe for concurrent use.
type View struct {
	fetcher        Fetcher
	refetchOnLeave bool
	hidePast       bool
	now            func() time.Time

	mu      sync.Mutex
	events  map[string]*domain.Event
	focused string
}

// NewView returns an empty view; call Refresh to load it.
func NewView(fetcher Fetcher, opts ...Option) *View {
	v := &View{
		fetcher: fetcher,
		now:     time.Now,
		events:  make(map[string]*domain.Event),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Refresh replaces the cache with the server's event list.
func (v *View) Refresh(ctx context.Context) error {
	events, err := v.fetcher.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	next := make(map[string]*domain.Event, len(events))
	for _, ev := range events {
		next[ev.ID] = ev.Clone()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// Keep the focused event even if the list no longer carries it; a cancel will remove it.
	if f, ok := v.events[v.focused]; ok {
		if _, listed := next[v.focused]; !listed {
			next[v.focused] = f
		}
	}
	v.events = next
	return nil
}

// Focus loads id into the view and marks it as the event on screen.
func (v *View) Focus(ctx context.Context, id string) (*domain.Event, error) {
	ev, err := v.fetcher.FetchEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch event %s: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.events[ev.ID] = ev.Clone()
	v.focused = ev.ID
	return ev.Clone(), nil
}

// Unfocus clears the focused event.
func (v *View) Unfocus() {
	v.mu.Lock()
	v.focused = ""
	v.mu.Unlock()
}

// Focused returns the id of the focused event, or "".
func (v *View) Focused() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focused
}

// Apply reconciles one notification. On a fetch error the view is left unchanged.
func (v *View) Apply(ctx context.Context, n domain.Notification) (Action, error) {
	switch n := n.(type) {
	case domain.EventCreated:
		if err := v.Refresh(ctx); err != nil {
			return ActionNone, err
		}
		return ActionRefetched, nil
	case domain.UserJoined:
		return v.mergeAttendee(n.Event, n.User), nil
	case domain.UserLeft:
		if v.refetchOnLeave {
			return v.refetch(ctx, n.Event)
		}
		return v.removeAttendee(n.Event, n.User.ID), nil
	case domain.EventCancelled:
		return v.remove(n.Event), nil
	default:
		return ActionNone, nil
	}
}

func (v *View) mergeAttendee(eventID string, a domain.Attendee) Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	ev, ok := v.events[eventID]
	if !ok || ev.HasAttendee(a.ID) {
		return ActionNone
	}
	ev.Attendees = append(ev.Attendees, a)
	return ActionMerged
}

func (v *View) removeAttendee(eventID, userID string) Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	ev, ok := v.events[eventID]
	if !ok || !ev.HasAttendee(userID) {
		return ActionNone
	}
	ev.Attendees = slices.DeleteFunc(ev.Attendees, func(a domain.Attendee) bool { return a.ID == userID })
	return ActionMerged
}

func (v *View) refetch(ctx context.Context, eventID string) (Action, error) {
	v.mu.Lock()
	_, cached := v.events[eventID]
	v.mu.Unlock()
	if !cached {
		return ActionNone, nil
	}

	ev, err := v.fetcher.FetchEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return v.remove(eventID), nil
	}
	if err != nil {
		return ActionNone, fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.events[eventID]; !ok {
		// Cancelled while we were fetching.
		return ActionNone, nil
	}
	v.events[eventID] = ev.Clone()
	return ActionRefetched, nil
}

func (v *View) remove(eventID string) Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, cached := v.events[eventID]
	delete(v.events, eventID)
	if eventID == v.focused {
		v.focused = ""
		return ActionNavigateAway
	}
	if cached {
		return ActionRemoved
	}
	return ActionNone
}

// Events returns copies of the visible events ordered by start time.
func (v *View) Events() []*domain.Event {
	v.mu.Lock()
	defer v.mu.Unlock()

	var cutoff time.Time
	if v.hidePast {
		now := v.now()
		y, m, d := now.Date()
		cutoff = time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
	}

	out := make([]*domain.Event, 0, len(v.events))
	for _, ev := range v.events {
		if v.hidePast && ev.StartTime.Before(cutoff) {
			continue
		}
		out = append(out, ev.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Event returns a copy of a cached event, hidden or not.
func (v *View) Event(id string) (*domain.Event, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ev, ok := v.events[id]
	if !ok {
		return nil, false
	}
	return ev.Clone(), true
}
