package graphql

import (
	"context"
	"errors"
	"sync"

	graphqlgo "github.com/graph-gophers/graphql-go"

	"eventplanner/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

type eventResolver struct {
	root *Resolver
	ev   *domain.Event
}

func (r *Resolver) event(ev *domain.Event) *eventResolver {
	return &eventResolver{root: r, ev: ev}
}

func (r *Resolver) eventList(events []*domain.Event) []*eventResolver {
	out := make([]*eventResolver, len(events))
	for i, ev := range events {
		out[i] = r.event(ev)
	}
	return out
}

func (e *eventResolver) ID() graphqlgo.ID    { return graphqlgo.ID(e.ev.ID) }
func (e *eventResolver) Title() string       { return e.ev.Title }
func (e *eventResolver) Description() string { return e.ev.Description }
func (e *eventResolver) StartTime() string   { return domain.EpochMillis(e.ev.StartTime) }

func (e *eventResolver) Attendees() []*userResolver {
	out := make([]*userResolver, len(e.ev.Attendees))
	for i, a := range e.ev.Attendees {
		out[i] = e.root.attendee(a)
	}
	return out
}

func (e *eventResolver) Creator() *userResolver {
	if e.ev.Creator != nil {
		return e.root.attendee(*e.ev.Creator)
	}
	if a, ok := e.ev.Attendee(e.ev.CreatorID); ok {
		return e.root.attendee(a)
	}
	return e.root.attendee(domain.Attendee{ID: e.ev.CreatorID})
}

// userResolver serves both full users and the attendee summaries embedded in events.
// Fields missing from a summary are loaded once on demand.
type userResolver struct {
	root    *Resolver
	summary domain.Attendee

	once sync.Once
	full *domain.User
	err  error
}

func (r *Resolver) user(u *domain.User) *userResolver {
	ur := &userResolver{root: r, summary: u.Summary(), full: u}
	ur.once.Do(func() {})
	return ur
}

func (r *Resolver) attendee(a domain.Attendee) *userResolver {
	return &userResolver{root: r, summary: a}
}

func (u *userResolver) load(ctx context.Context) (*domain.User, error) {
	u.once.Do(func() {
		u.full, u.err = u.root.users.GetByID(ctx, u.summary.ID)
	})
	return u.full, u.err
}

func (u *userResolver) ID() graphqlgo.ID { return graphqlgo.ID(u.summary.ID) }

func (u *userResolver) Name(ctx context.Context) (string, error) {
	if u.summary.Name != "" {
		return u.summary.Name, nil
	}
	full, err := u.load(ctx)
	if err != nil {
		return "", u.root.fail(ctx, "user.name", err)
	}
	return full.Name, nil
}

func (u *userResolver) Email(ctx context.Context) (string, error) {
	full, err := u.load(ctx)
	if err != nil {
		return "", u.root.fail(ctx, "user.email", err)
	}
	return full.Email, nil
}

// Events lists the events the user attends.
func (u *userResolver) Events(ctx context.Context) ([]*eventResolver, error) {
	events, err := u.root.events.GetEvents(ctx)
	if err != nil {
		return nil, u.root.fail(ctx, "user.events", err)
	}
	attending := make([]*domain.Event, 0)
	for _, ev := range events {
		if ev.HasAttendee(u.summary.ID) {
			attending = append(attending, ev)
		}
	}
	return u.root.eventList(attending), nil
}

type authPayloadResolver struct {
	token string
	user  *userResolver
}

func (a *authPayloadResolver) Token() string       { return a.token }
func (a *authPayloadResolver) User() *userResolver { return a.user }
