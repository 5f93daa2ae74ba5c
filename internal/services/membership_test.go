package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/domain"
	"eventplanner/internal/notify"
	"eventplanner/internal/repository/memory"
)

// recordingDispatcher captures dispatched notifications in order.
type recordingDispatcher struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (d *recordingDispatcher) Dispatch(notes ...domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = append(d.notes, notes...)
}

func (d *recordingDispatcher) all() []domain.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Notification(nil), d.notes...)
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = nil
}

// failingEventRepo fails every write with a storage error.
type failingEventRepo struct {
	domain.EventRepository
}

func (failingEventRepo) UpdateAttendees(context.Context, string, string, domain.AttendeeOp) (bool, error) {
	return false, fmt.Errorf("%w: connection reset", domain.ErrStorage)
}

// readFailsEventRepo commits writes but fails the read that follows them.
type readFailsEventRepo struct {
	domain.EventRepository
}

func (readFailsEventRepo) GetWithAttendees(context.Context, string) (*domain.Event, error) {
	return nil, fmt.Errorf("%w: read timeout", domain.ErrStorage)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc        domain.MembershipService
	dispatcher *recordingDispatcher
	users      domain.UserRepository
	events     domain.EventRepository
	alice      *domain.User
	bob        *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		dispatcher: &recordingDispatcher{},
		users:      memory.NewUserRepository(store),
		events:     memory.NewEventRepository(store),
	}
	f.svc = NewMembershipService(f.events, f.users, f.dispatcher, discardLogger(), time.Second)
	f.alice = f.addUser(t, "alice@example.com", "Alice")
	f.bob = f.addUser(t, "bob@example.com", "Bob")
	return f
}

func (f *fixture) addUser(t *testing.T, email, name string) *domain.User {
	t.Helper()
	now := time.Now()
	u := domain.NewUser(email, name, "hash", "salt", now, now)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) createEvent(t *testing.T, creator *domain.User) *domain.Event {
	t.Helper()
	ev, err := f.svc.CreateEvent(context.Background(), creator.ID, "Picnic", "Bring food", time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	f.dispatcher.reset()
	return ev
}

func attendeeIDs(ev *domain.Event) []string {
	ids := make([]string, len(ev.Attendees))
	for i, a := range ev.Attendees {
		ids[i] = a.ID
	}
	return ids
}

func TestMembershipService_CreateEvent(t *testing.T) {
	start := time.Date(2025, 7, 1, 18, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	tests := []struct {
		name        string
		subject     func(f *fixture) string
		title       string
		description string
		start       time.Time
		wantErr     error
	}{
		{
			name:        "creator becomes first attendee",
			subject:     func(f *fixture) string { return f.alice.ID },
			title:       "  Picnic ",
			description: "Bring food",
			start:       start,
		},
		{
			name:        "anonymous",
			subject:     func(*fixture) string { return "" },
			title:       "Picnic",
			description: "Bring food",
			start:       start,
			wantErr:     domain.ErrUnauthenticated,
		},
		{
			name:        "subject without user record",
			subject:     func(*fixture) string { return "ghost" },
			title:       "Picnic",
			description: "Bring food",
			start:       start,
			wantErr:     domain.ErrUnauthenticated,
		},
		{
			name:        "blank title",
			subject:     func(f *fixture) string { return f.alice.ID },
			title:       "   ",
			description: "Bring food",
			start:       start,
			wantErr:     domain.ErrInvalidInput,
		},
		{
			name:        "blank description",
			subject:     func(f *fixture) string { return f.alice.ID },
			title:       "Picnic",
			description: "",
			start:       start,
			wantErr:     domain.ErrInvalidInput,
		},
		{
			name:        "missing start time",
			subject:     func(f *fixture) string { return f.alice.ID },
			title:       "Picnic",
			description: "Bring food",
			wantErr:     domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ev, err := f.svc.CreateEvent(context.Background(), tt.subject(f), tt.title, tt.description, tt.start)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ev)
				assert.Empty(t, f.dispatcher.all())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Picnic", ev.Title)
			assert.Equal(t, f.alice.ID, ev.CreatorID)
			assert.Equal(t, []domain.Attendee{{ID: f.alice.ID, Name: "Alice"}}, ev.Attendees)
			assert.True(t, ev.StartTime.Equal(start))
			assert.Equal(t, time.UTC, ev.StartTime.Location())

			notes := f.dispatcher.all()
			require.Len(t, notes, 1)
			created, ok := notes[0].(domain.EventCreated)
			require.True(t, ok)
			assert.Equal(t, ev.ID, created.Event.ID)
		})
	}
}

func TestMembershipService_JoinEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("adds attendee and notifies once", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)

		got, err := f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{f.alice.ID, f.bob.ID}, attendeeIDs(got))

		again, err := f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, attendeeIDs(got), attendeeIDs(again))

		notes := f.dispatcher.all()
		require.Len(t, notes, 1)
		assert.Equal(t, domain.UserJoined{Event: ev.ID, User: domain.Attendee{ID: f.bob.ID, Name: "Bob"}}, notes[0])
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)

		_, err := f.svc.JoinEvent(ctx, "", ev.ID)
		require.ErrorIs(t, err, domain.ErrUnauthenticated)
		assert.Empty(t, f.dispatcher.all())
	})

	t.Run("missing event", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.JoinEvent(ctx, f.bob.ID, "does-not-exist")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.dispatcher.all())
	})

	t.Run("storage failure publishes nothing", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)
		svc := NewMembershipService(failingEventRepo{f.events}, f.users, f.dispatcher, discardLogger(), time.Second)

		_, err := svc.JoinEvent(ctx, f.bob.ID, ev.ID)
		require.ErrorIs(t, err, domain.ErrStorage)
		assert.Contains(t, err.Error(), "join event")
		assert.Empty(t, f.dispatcher.all())
	})
}

func TestMembershipService_LeaveEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("removes attendee and notifies once", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)
		_, err := f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)
		f.dispatcher.reset()

		got, err := f.svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{f.alice.ID}, attendeeIDs(got))

		_, err = f.svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)

		notes := f.dispatcher.all()
		require.Len(t, notes, 1)
		assert.Equal(t, domain.UserLeft{Event: ev.ID, User: domain.Attendee{ID: f.bob.ID, Name: "Bob"}}, notes[0])
	})

	t.Run("non member is a no-op", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)

		got, err := f.svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{f.alice.ID}, attendeeIDs(got))
		assert.Empty(t, f.dispatcher.all())
	})

	t.Run("creator may leave", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)

		got, err := f.svc.LeaveEvent(ctx, f.alice.ID, ev.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Attendees)
		assert.Equal(t, f.alice.ID, got.CreatorID)

		// The creator keeps the right to cancel.
		ok, err := f.svc.CancelEvent(ctx, f.alice.ID, ev.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, f.alice)

		_, err := f.svc.LeaveEvent(ctx, "", ev.ID)
		require.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.LeaveEvent(ctx, f.bob.ID, "does-not-exist")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMembershipService_ReadAfterWriteFailureStillNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.createEvent(t, f.alice)
	svc := NewMembershipService(readFailsEventRepo{f.events}, f.users, f.dispatcher, discardLogger(), time.Second)

	_, err := svc.JoinEvent(ctx, f.bob.ID, ev.ID)
	require.ErrorIs(t, err, domain.ErrStorage)
	stored, err := f.events.GetWithAttendees(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.alice.ID, f.bob.ID}, attendeeIDs(stored))
	assert.Equal(t, []domain.Notification{domain.UserJoined{Event: ev.ID, User: f.bob.Summary()}}, f.dispatcher.all())

	f.dispatcher.reset()
	_, err = svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, []domain.Notification{domain.UserLeft{Event: ev.ID, User: f.bob.Summary()}}, f.dispatcher.all())

	f.dispatcher.reset()
	_, err = svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, f.dispatcher.all())
}

func TestMembershipService_CancelEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		subject func(f *fixture) string
		eventID func(ev *domain.Event) string
		wantErr error
	}{
		{
			name:    "creator cancels",
			subject: func(f *fixture) string { return f.alice.ID },
			eventID: func(ev *domain.Event) string { return ev.ID },
		},
		{
			name:    "non creator is forbidden",
			subject: func(f *fixture) string { return f.bob.ID },
			eventID: func(ev *domain.Event) string { return ev.ID },
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "anonymous on existing event",
			subject: func(*fixture) string { return "" },
			eventID: func(ev *domain.Event) string { return ev.ID },
			wantErr: domain.ErrUnauthenticated,
		},
		{
			name:    "missing event is reported before authentication",
			subject: func(*fixture) string { return "" },
			eventID: func(*domain.Event) string { return "does-not-exist" },
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ev := f.createEvent(t, f.alice)
			_, err := f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
			require.NoError(t, err)
			f.dispatcher.reset()

			ok, err := f.svc.CancelEvent(ctx, tt.subject(f), tt.eventID(ev))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, ok)
				assert.Empty(t, f.dispatcher.all())
				got, err := f.svc.GetEventByID(ctx, ev.ID)
				require.NoError(t, err)
				assert.Equal(t, ev.Title, got.Title)
				assert.Equal(t, []string{f.alice.ID, f.bob.ID}, attendeeIDs(got))
				return
			}
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []domain.Notification{domain.EventCancelled{Event: ev.ID}}, f.dispatcher.all())

			_, err = f.svc.GetEventByID(ctx, ev.ID)
			require.ErrorIs(t, err, domain.ErrNotFound)
			_, err = f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
			require.ErrorIs(t, err, domain.ErrNotFound)
			_, err = f.svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
			require.ErrorIs(t, err, domain.ErrNotFound)
			_, err = f.svc.CancelEvent(ctx, f.alice.ID, ev.ID)
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestMembershipService_GetEventsOrderedByStartTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Now().Add(time.Hour)

	for _, tc := range []struct {
		title  string
		offset time.Duration
	}{{"third", 3 * time.Hour}, {"first", time.Hour}, {"second", 2 * time.Hour}} {
		_, err := f.svc.CreateEvent(ctx, f.alice.ID, tc.title, "d", base.Add(tc.offset))
		require.NoError(t, err)
	}

	events, err := f.svc.GetEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Title)
	assert.Equal(t, "second", events[1].Title)
	assert.Equal(t, "third", events[2].Title)
	for _, ev := range events {
		assert.Equal(t, []string{f.alice.ID}, attendeeIDs(ev))
	}
}

func TestMembershipService_ConcurrentJoinsNotifyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.createEvent(t, f.alice)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.dispatcher.all(), 1)
	got, err := f.svc.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.alice.ID, f.bob.ID}, attendeeIDs(got))
}

func TestMembershipService_ConcurrentJoinAndLeaveConverge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.createEvent(t, f.alice)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.JoinEvent(ctx, f.bob.ID, ev.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.LeaveEvent(ctx, f.bob.ID, ev.ID)
		}()
	}
	wg.Wait()

	// Every published delta is one flip of the stored membership.
	joins, leaves := 0, 0
	for _, n := range f.dispatcher.all() {
		switch n.(type) {
		case domain.UserJoined:
			joins++
		case domain.UserLeft:
			leaves++
		}
	}
	got, err := f.svc.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	if got.HasAttendee(f.bob.ID) {
		assert.Equal(t, 1, joins-leaves)
	} else {
		assert.Equal(t, 0, joins-leaves)
	}
}

func TestMembershipService_NotifiesConnectedSubscribers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	events := memory.NewEventRepository(store)

	hub := notify.NewHub(discardLogger(), 8)
	defer hub.Close()
	dispatcher := notify.NewDispatcher(hub, discardLogger(), 8)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = dispatcher.Run(runCtx) }()

	svc := NewMembershipService(events, users, dispatcher, discardLogger(), time.Second)
	now := time.Now()
	alice := domain.NewUser("alice@example.com", "Alice", "h", "s", now, now)
	bob := domain.NewUser("bob@example.com", "Bob", "h", "s", now, now)
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	ev, err := svc.CreateEvent(ctx, alice.ID, "Picnic", "Bring food", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.JoinEvent(ctx, bob.ID, ev.ID)
	require.NoError(t, err)
	_, err = svc.CancelEvent(ctx, alice.ID, ev.ID)
	require.NoError(t, err)

	want := []domain.Topic{domain.TopicEventCreated, domain.TopicUserJoined, domain.TopicEventCancelled}
	for _, topic := range want {
		select {
		case n := <-sub.C():
			assert.Equal(t, topic, n.Topic())
			assert.Equal(t, ev.ID, n.EventID())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", topic)
		}
	}
}

func TestWrapOp(t *testing.T) {
	storage := fmt.Errorf("%w: boom", domain.ErrStorage)
	assert.Equal(t, "join event: storage failure: boom", wrapOp("join event", storage).Error())
	assert.Same(t, domain.ErrNotFound, wrapOp("join event", domain.ErrNotFound))
	assert.True(t, errors.Is(wrapOp("x", storage), domain.ErrStorage))
}
