package notify

import (
	"context"
	"log/slog"

	"eventplanner/internal/domain"
	"eventplanner/internal/metrics"
)

// DefaultQueueSize is used when NewDispatcher is given a non-positive size.
const DefaultQueueSize = 256

// Publisher is the fan-out side the dispatcher feeds. *Hub implements it.
type Publisher interface {
	Publish(n domain.Notification) int
}

// Dispatcher decouples mutations from fan-out: Dispatch enqueues, Run publishes in FIFO order.
type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	queue     chan domain.Notification
}

var _ domain.NotificationDispatcher = (*Dispatcher)(nil)

// NewDispatcher returns a dispatcher that publishes to publisher once Run is started.
func NewDispatcher(publisher Publisher, logger *slog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan domain.Notification, queueSize),
	}
}

// Dispatch enqueues notes without blocking. Notes that do not fit are dropped and logged.
func (d *Dispatcher) Dispatch(notes ...domain.Notification) {
	for _, n := range notes {
		if n == nil {
			continue
		}
		select {
		case d.queue <- n:
		default:
			metrics.NotificationsDropped.WithLabelValues("queue").Inc()
			d.logger.Warn("dispatch queue full, notification dropped",
				"topic", n.Topic(), "event_id", n.EventID())
		}
	}
}

// Run publishes queued notifications until ctx is done, then drains what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case n := <-d.queue:
			d.publish(n)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.publish(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("publish panicked", "topic", n.Topic(), "event_id", n.EventID(), "panic", r)
		}
	}()
	delivered := d.publisher.Publish(n)
	d.logger.Debug("notification published",
		"topic", n.Topic(), "event_id", n.EventID(), "delivered", delivered)
}
