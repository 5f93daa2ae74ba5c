package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartTime(t *testing.T) {
	want := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339 utc", in: "2025-06-01T16:00:00Z", want: want},
		{name: "rfc3339 offset", in: "2025-06-01T18:00:00+02:00", want: want},
		{name: "rfc3339 millis", in: "2025-06-01T16:00:00.000Z", want: want},
		{name: "epoch millis", in: "1748793600000", want: want},
		{name: "blank", in: "  ", wantErr: true},
		{name: "garbage", in: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStartTime(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestEpochMillisRoundTrip(t *testing.T) {
	start := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "1748793600000", EpochMillis(start))

	got, err := ParseStartTime(EpochMillis(start))
	require.NoError(t, err)
	assert.True(t, start.Equal(got))
}

func TestEventClone(t *testing.T) {
	ev := &Event{ID: "ev-1", Creator: &Attendee{ID: "u1", Name: "Ann"}, Attendees: []Attendee{{ID: "u1", Name: "Ann"}}}
	c := ev.Clone()
	c.Attendees[0].Name = "changed"
	c.Creator.Name = "changed"

	assert.Equal(t, "Ann", ev.Attendees[0].Name)
	assert.Equal(t, "Ann", ev.Creator.Name)
	assert.True(t, ev.HasAttendee("u1"))
	assert.False(t, ev.HasAttendee("u2"))
	assert.Nil(t, (*Event)(nil).Clone())
}
