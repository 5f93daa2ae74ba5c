package domain

// Topic names a notification stream. Values match the event names the mobile client listens for.
type Topic string

const (
	TopicEventCreated   Topic = "newEventCreated"
	TopicUserJoined     Topic = "userJoinedEvent"
	TopicUserLeft       Topic = "userLeftEvent"
	TopicEventCancelled Topic = "eventCancelled"
)

// Topics lists every topic the hub carries.
var Topics = []Topic{TopicEventCreated, TopicUserJoined, TopicUserLeft, TopicEventCancelled}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// Notification is a typed change broadcast to connected clients.
// Exactly one of the payload structs below implements it per topic.
type Notification interface {
	Topic() Topic
	// EventID returns the event the notification refers to.
	EventID() string
}

// EventCreated is published after a new event is stored.
type EventCreated struct {
	Event *Event `json:"event"`
}

func (EventCreated) Topic() Topic      { return TopicEventCreated }
func (n EventCreated) EventID() string { return n.Event.ID }

// UserJoined is published when a user is added to an attendee set.
type UserJoined struct {
	Event string   `json:"eventId"`
	User  Attendee `json:"user"`
}

func (UserJoined) Topic() Topic      { return TopicUserJoined }
func (n UserJoined) EventID() string { return n.Event }

// UserLeft is published when a user is removed from an attendee set.
type UserLeft struct {
	Event string   `json:"eventId"`
	User  Attendee `json:"user"`
}

func (UserLeft) Topic() Topic      { return TopicUserLeft }
func (n UserLeft) EventID() string { return n.Event }

// EventCancelled is published after an event is deleted by its creator.
type EventCancelled struct {
	Event string `json:"eventId"`
}

func (EventCancelled) Topic() Topic      { return TopicEventCancelled }
func (n EventCancelled) EventID() string { return n.Event }

// NotificationDispatcher accepts notifications produced by a committed mutation.
// Dispatch must not block and has no failure mode visible to the caller.
type NotificationDispatcher interface {
	Dispatch(notes ...Notification)
}
