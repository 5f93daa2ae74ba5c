//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"eventplanner/internal/domain"
)

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("eventplanner"),
		tcpostgres.WithUsername("eventplanner"),
		tcpostgres.WithPassword("eventplanner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, MigrateUp(url))

	db, err := Open(ctx, url, PoolConfig{MaxOpenConns: 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, repo domain.UserRepository, email, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.NewUser(email, name, "hash", "salt", now, now)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestIntegration_EventLifecycle(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	events := NewEventRepository(db)

	alice := createUser(t, users, "alice@example.com", "Alice")
	bob := createUser(t, users, "bob@example.com", "Bob")

	_, err := users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	err = users.Create(ctx, domain.NewUser("alice@example.com", "Again", "h", "s", time.Now(), time.Now()))
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	ev := domain.NewEvent("Picnic", "Bring food", time.Now().Add(24*time.Hour), alice.ID)
	require.NoError(t, events.Create(ctx, ev))
	require.NotEmpty(t, ev.ID)
	assert.Equal(t, []domain.Attendee{{ID: alice.ID, Name: "Alice"}}, ev.Attendees)

	changed, err := events.UpdateAttendees(ctx, ev.ID, bob.ID, domain.AttendeeAdd)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = events.UpdateAttendees(ctx, ev.ID, bob.ID, domain.AttendeeAdd)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := events.GetWithAttendees(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Attendee{{ID: alice.ID, Name: "Alice"}, {ID: bob.ID, Name: "Bob"}}, got.Attendees)

	_, err = events.GetWithAttendees(ctx, "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, events.Delete(ctx, ev.ID))
	require.ErrorIs(t, events.Delete(ctx, ev.ID), domain.ErrNotFound)
	_, err = events.UpdateAttendees(ctx, ev.ID, bob.ID, domain.AttendeeRemove)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntegration_ConcurrentJoinChangesOnce(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	events := NewEventRepository(db)

	alice := createUser(t, users, "alice@example.com", "Alice")
	bob := createUser(t, users, "bob@example.com", "Bob")
	ev := domain.NewEvent("Picnic", "Bring food", time.Now().Add(time.Hour), alice.ID)
	require.NoError(t, events.Create(ctx, ev))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := events.UpdateAttendees(ctx, ev.ID, bob.ID, domain.AttendeeAdd)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)

	got, err := events.GetWithAttendees(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attendees, 2)
}
