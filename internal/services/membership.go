package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventplanner/internal/domain"
	"eventplanner/internal/metrics"
)

// outcome is what a committed membership decision produced. effects are only
// populated after the repository confirmed the write, and may accompany an
// error raised after that point.
type outcome struct {
	event     *domain.Event
	cancelled bool
	effects   []domain.Notification
}

// membershipCore decides and applies membership changes. It never publishes.
type membershipCore struct {
	events domain.EventRepository
	users  domain.UserRepository
}

// subjectUser resolves the authenticated subject. A token whose user no longer exists is unauthenticated.
func (c *membershipCore) subjectUser(ctx context.Context, subject string) (*domain.User, error) {
	if subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	u, err := c.users.GetByID(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *membershipCore) createEvent(ctx context.Context, subject, title, description string, startTime time.Time) (outcome, error) {
	if subject == "" {
		return outcome{}, domain.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return outcome{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	case description == "":
		return outcome{}, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	case startTime.IsZero():
		return outcome{}, fmt.Errorf("%w: start time is required", domain.ErrInvalidInput)
	}

	if _, err := c.subjectUser(ctx, subject); err != nil {
		return outcome{}, err
	}
	ev := domain.NewEvent(title, description, startTime, subject)
	if err := c.events.Create(ctx, ev); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The creator row vanished between lookup and insert.
			return outcome{}, domain.ErrUnauthenticated
		}
		return outcome{}, err
	}
	return outcome{
		event:   ev,
		effects: []domain.Notification{domain.EventCreated{Event: ev.Clone()}},
	}, nil
}

func (c *membershipCore) changeAttendance(ctx context.Context, subject, eventID string, op domain.AttendeeOp) (outcome, error) {
	user, err := c.subjectUser(ctx, subject)
	if err != nil {
		return outcome{}, err
	}
	changed, err := c.events.UpdateAttendees(ctx, eventID, user.ID, op)
	if err != nil {
		return outcome{}, err
	}

	var out outcome
	if changed {
		switch op {
		case domain.AttendeeAdd:
			out.effects = []domain.Notification{domain.UserJoined{Event: eventID, User: user.Summary()}}
		case domain.AttendeeRemove:
			out.effects = []domain.Notification{domain.UserLeft{Event: eventID, User: user.Summary()}}
		}
	}
	// The write is committed at this point, so a failed read keeps the effects.
	ev, err := c.events.GetWithAttendees(ctx, eventID)
	if err != nil {
		return out, err
	}
	out.event = ev
	return out, nil
}

// cancelEvent checks existence before the subject, so a missing event is NotFound even for anonymous callers.
func (c *membershipCore) cancelEvent(ctx context.Context, subject, eventID string) (outcome, error) {
	ev, err := c.events.GetByID(ctx, eventID)
	if err != nil {
		return outcome{}, err
	}
	if subject == "" {
		return outcome{}, domain.ErrUnauthenticated
	}
	if ev.CreatorID != subject {
		return outcome{}, domain.ErrForbidden
	}
	if err := c.events.Delete(ctx, ev.ID); err != nil {
		return outcome{}, err
	}
	return outcome{
		event:     ev,
		cancelled: true,
		effects:   []domain.Notification{domain.EventCancelled{Event: ev.ID}},
	}, nil
}

type membershipService struct {
	core           membershipCore
	dispatcher     domain.NotificationDispatcher
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewMembershipService returns the event lifecycle service. Notifications for committed
// changes are handed to dispatcher; its failures never fail the mutation.
func NewMembershipService(
	events domain.EventRepository,
	users domain.UserRepository,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger,
	timeout time.Duration,
) domain.MembershipService {
	return &membershipService{
		core:           membershipCore{events: events, users: users},
		dispatcher:     dispatcher,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *membershipService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.contextTimeout)
}

// commit records the mutation and dispatches its effects.
func (s *membershipService) commit(operation string, out outcome, err error) {
	switch {
	case err != nil:
		metrics.MembershipMutations.WithLabelValues(operation, "error").Inc()
		if errors.Is(err, domain.ErrStorage) {
			s.logger.Error("membership mutation failed", "operation", operation, "error", err)
		}
		if len(out.effects) > 0 && s.dispatcher != nil {
			s.dispatcher.Dispatch(out.effects...)
		}
		return
	case len(out.effects) == 0:
		metrics.MembershipMutations.WithLabelValues(operation, "unchanged").Inc()
		return
	}
	metrics.MembershipMutations.WithLabelValues(operation, "changed").Inc()
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(out.effects...)
	}
}

func (s *membershipService) CreateEvent(ctx context.Context, subject, title, description string, startTime time.Time) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := s.core.createEvent(ctx, subject, title, description, startTime)
	s.commit("create", out, err)
	if err != nil {
		return nil, wrapOp("create event", err)
	}
	s.logger.Info("event created", "event_id", out.event.ID, "creator_id", subject)
	return out.event, nil
}

func (s *membershipService) JoinEvent(ctx context.Context, subject, eventID string) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := s.core.changeAttendance(ctx, subject, eventID, domain.AttendeeAdd)
	s.commit("join", out, err)
	if err != nil {
		return nil, wrapOp("join event", err)
	}
	return out.event, nil
}

func (s *membershipService) LeaveEvent(ctx context.Context, subject, eventID string) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := s.core.changeAttendance(ctx, subject, eventID, domain.AttendeeRemove)
	s.commit("leave", out, err)
	if err != nil {
		return nil, wrapOp("leave event", err)
	}
	return out.event, nil
}

func (s *membershipService) CancelEvent(ctx context.Context, subject, eventID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := s.core.cancelEvent(ctx, subject, eventID)
	s.commit("cancel", out, err)
	if err != nil {
		return false, wrapOp("cancel event", err)
	}
	s.logger.Info("event cancelled", "event_id", eventID, "creator_id", subject)
	return out.cancelled, nil
}

func (s *membershipService) GetEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.core.events.List(ctx)
	if err != nil {
		return nil, wrapOp("list events", err)
	}
	return events, nil
}

func (s *membershipService) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ev, err := s.core.events.GetWithAttendees(ctx, id)
	if err != nil {
		return nil, wrapOp("get event", err)
	}
	return ev, nil
}

// wrapOp prefixes storage failures with the operation. Caller-facing sentinels stay bare
// so their text can be shown to clients as is.
func wrapOp(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return err
}
