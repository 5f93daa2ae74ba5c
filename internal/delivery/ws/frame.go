package ws

import (
	"encoding/json"
	"fmt"

	"eventplanner/internal/domain"
)

// Frame is the JSON text message pushed for every notification.
type Frame struct {
	Event   domain.Topic    `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeFrame wraps n in a Frame.
func EncodeFrame(n domain.Notification) (Frame, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", n.Topic(), err)
	}
	return Frame{Event: n.Topic(), Payload: payload}, nil
}

// Notification decodes the payload back into the typed notification for its topic.
func (f Frame) Notification() (domain.Notification, error) {
	var (
		n   domain.Notification
		err error
	)
	switch f.Event {
	case domain.TopicEventCreated:
		var v domain.EventCreated
		err = json.Unmarshal(f.Payload, &v)
		if err == nil && v.Event == nil {
			err = fmt.Errorf("missing event")
		}
		n = v
	case domain.TopicUserJoined:
		var v domain.UserJoined
		err = json.Unmarshal(f.Payload, &v)
		n = v
	case domain.TopicUserLeft:
		var v domain.UserLeft
		err = json.Unmarshal(f.Payload, &v)
		n = v
	case domain.TopicEventCancelled:
		var v domain.EventCancelled
		err = json.Unmarshal(f.Payload, &v)
		n = v
	default:
		return nil, fmt.Errorf("unknown topic %q", f.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return n, nil
}

// ParseTopics parses the comma separated ?topics= filter. An empty filter means every topic.
func ParseTopics(raw string) ([]domain.Topic, error) {
	var topics []domain.Topic
	for _, part := range splitComma(raw) {
		t := domain.Topic(part)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown topic %q", domain.ErrInvalidInput, part)
		}
		topics = append(topics, t)
	}
	return topics, nil
}
