package notify

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func joined(eventID, userID string) domain.UserJoined {
	return domain.UserJoined{Event: eventID, User: domain.Attendee{ID: userID, Name: "name-" + userID}}
}

func TestHub_PublishDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	defer hub.Close()

	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	n := joined("ev-1", "user-1")
	assert.Equal(t, 2, hub.Publish(n))
	assert.Equal(t, n, <-a.C())
	assert.Equal(t, n, <-b.C())
}

func TestHub_TopicFilter(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	defer hub.Close()

	cancels, err := hub.Subscribe(domain.TopicEventCancelled)
	require.NoError(t, err)
	all, err := hub.Subscribe()
	require.NoError(t, err)

	assert.Equal(t, 1, hub.Publish(joined("ev-1", "user-1")))
	assert.Equal(t, 2, hub.Publish(domain.EventCancelled{Event: "ev-1"}))

	assert.Equal(t, domain.TopicUserJoined, (<-all.C()).Topic())
	assert.Equal(t, domain.TopicEventCancelled, (<-all.C()).Topic())
	assert.Equal(t, domain.TopicEventCancelled, (<-cancels.C()).Topic())
	assert.Len(t, cancels.C(), 0)
}

func TestHub_LateSubscriberGetsNoReplay(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	defer hub.Close()

	assert.Equal(t, 0, hub.Publish(joined("ev-1", "user-1")))

	s, err := hub.Subscribe()
	require.NoError(t, err)
	assert.Len(t, s.C(), 0)
}

func TestHub_FullBufferDropsForThatSubscriberOnly(t *testing.T) {
	hub := NewHub(testLogger(), 1)
	defer hub.Close()

	slow, err := hub.Subscribe()
	require.NoError(t, err)
	fast, err := hub.Subscribe()
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Publish(joined("ev-1", "user-1")))
	<-fast.C()
	assert.Equal(t, 1, hub.Publish(joined("ev-1", "user-2")))

	assert.Equal(t, "user-1", (<-slow.C()).(domain.UserJoined).User.ID)
	assert.Equal(t, "user-2", (<-fast.C()).(domain.UserJoined).User.ID)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	defer hub.Close()

	s, err := hub.Subscribe()
	require.NoError(t, err)
	s.Close()
	s.Close()

	_, open := <-s.C()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, 0, hub.Publish(joined("ev-1", "user-1")))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	s, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()
	hub.Close()

	_, open := <-s.C()
	assert.False(t, open)
	s.Close()

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, 0, hub.Publish(joined("ev-1", "user-1")))
}

func TestHub_ConcurrentSubscribePublishClose(t *testing.T) {
	hub := NewHub(testLogger(), 8)
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s, err := hub.Subscribe()
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 10; j++ {
				select {
				case <-s.C():
				default:
				}
			}
			s.Close()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(joined("ev-1", "user-1"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Len())
}
