// Package graphql serves the mobile client's GraphQL API on top of the domain services.
package graphql

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"eventplanner/internal/delivery/http/middleware"
	"eventplanner/internal/domain"
)

//go:embed schema.graphql
var schemaSDL string

// maxQueryDepth bounds nesting such as event.attendees.events.attendees.
const maxQueryDepth = 8

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	events domain.MembershipService
	auth   domain.AuthService
	users  domain.UserRepository
	logger *slog.Logger
}

func NewResolver(events domain.MembershipService, auth domain.AuthService, users domain.UserRepository, logger *slog.Logger) *Resolver {
	return &Resolver{events: events, auth: auth, users: users, logger: logger}
}

// NewSchema parses the embedded schema against r. It panics if resolvers and schema disagree.
func NewSchema(r *Resolver) *graphqlgo.Schema {
	return graphqlgo.MustParseSchema(schemaSDL, r, graphqlgo.MaxDepth(maxQueryDepth))
}

// NewHandler returns the POST /graphql handler. Subjects come from middleware.Authenticate.
func NewHandler(r *Resolver) http.Handler {
	return &relay.Handler{Schema: NewSchema(r)}
}

func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	return toGraphQLError(ctx, r.logger, op, err)
}

// Queries

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	u, err := r.auth.Me(ctx, middleware.Subject(ctx))
	if err != nil {
		return nil, r.fail(ctx, "me", err)
	}
	return r.user(u), nil
}

func (r *Resolver) GetUsers(ctx context.Context) ([]*userResolver, error) {
	users, err := r.auth.ListUsers(ctx)
	if err != nil {
		return nil, r.fail(ctx, "getUsers", err)
	}
	out := make([]*userResolver, len(users))
	for i, u := range users {
		out[i] = r.user(u)
	}
	return out, nil
}

func (r *Resolver) GetEvents(ctx context.Context) ([]*eventResolver, error) {
	events, err := r.events.GetEvents(ctx)
	if err != nil {
		return nil, r.fail(ctx, "getEvents", err)
	}
	return r.eventList(events), nil
}

// GetEventByID returns null for an unknown id, as the mobile detail screen expects.
func (r *Resolver) GetEventByID(ctx context.Context, args struct{ ID string }) (*eventResolver, error) {
	ev, err := r.events.GetEventByID(ctx, args.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, r.fail(ctx, "getEventById", err)
	}
	return r.event(ev), nil
}

// Mutations

type signupArgs struct {
	Name     string
	Email    string
	Password string
}

func (r *Resolver) Signup(ctx context.Context, args signupArgs) (*authPayloadResolver, error) {
	res, err := r.auth.SignUp(ctx, args.Name, args.Email, args.Password)
	if err != nil {
		return nil, r.fail(ctx, "signup", err)
	}
	return &authPayloadResolver{token: res.Token, user: r.user(res.User)}, nil
}

type loginArgs struct {
	Email    string
	Password string
}

func (r *Resolver) Login(ctx context.Context, args loginArgs) (*authPayloadResolver, error) {
	res, err := r.auth.Login(ctx, args.Email, args.Password)
	if err != nil {
		return nil, r.fail(ctx, "login", err)
	}
	return &authPayloadResolver{token: res.Token, user: r.user(res.User)}, nil
}

type createEventArgs struct {
	Title       string
	Description string
	StartTime   string
}

func (r *Resolver) CreateEvent(ctx context.Context, args createEventArgs) (*eventResolver, error) {
	subject := middleware.Subject(ctx)
	if subject == "" {
		return nil, r.fail(ctx, "createEvent", domain.ErrUnauthenticated)
	}
	start, err := domain.ParseStartTime(args.StartTime)
	if err != nil {
		return nil, r.fail(ctx, "createEvent", err)
	}
	ev, err := r.events.CreateEvent(ctx, subject, args.Title, args.Description, start)
	if err != nil {
		return nil, r.fail(ctx, "createEvent", err)
	}
	return r.event(ev), nil
}

type eventIDArgs struct {
	EventID string
}

func (r *Resolver) JoinEvent(ctx context.Context, args eventIDArgs) (*eventResolver, error) {
	ev, err := r.events.JoinEvent(ctx, middleware.Subject(ctx), args.EventID)
	if err != nil {
		return nil, r.fail(ctx, "joinEvent", err)
	}
	return r.event(ev), nil
}

func (r *Resolver) LeaveEvent(ctx context.Context, args eventIDArgs) (*eventResolver, error) {
	ev, err := r.events.LeaveEvent(ctx, middleware.Subject(ctx), args.EventID)
	if err != nil {
		return nil, r.fail(ctx, "leaveEvent", err)
	}
	return r.event(ev), nil
}

func (r *Resolver) CancelEvent(ctx context.Context, args eventIDArgs) (bool, error) {
	ok, err := r.events.CancelEvent(ctx, middleware.Subject(ctx), args.EventID)
	if err != nil {
		return false, r.fail(ctx, "cancelEvent", err)
	}
	return ok, nil
}
