package events

import (
	"context"

	"budgetbook/internal/logger"
)

// Dispatcher buffers events and forwards them to a Publisher from a single
// goroutine. When the buffer is full new events are dropped and logged.
type Dispatcher struct {
	publisher Publisher
	eventCh   chan Event
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(publisher Publisher, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{
		publisher: publisher,
		eventCh:   make(chan Event, bufferSize),
	}
}

// Emit queues an event without blocking.
func (d *Dispatcher) Emit(event Event) {
	select {
	case d.eventCh <- event:
	default:
		logger.Named("events").Warnw("event buffer full, dropping event",
			"type", event.Type,
			"budget_ids", event.BudgetIDs,
		)
	}
}

// Run publishes queued events until ctx is done, then drains whatever is
// still buffered and returns. It always returns nil so a broker outage never
// brings the server down.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logger.Named("events")
	for {
		select {
		case <-ctx.Done():
			log.Infow("draining events before shutdown", "remaining_events", len(d.eventCh))
			for len(d.eventCh) > 0 {
				d.publish(context.Background(), <-d.eventCh)
			}
			return nil
		case event := <-d.eventCh:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		logger.Named("events").Errorw("failed to publish event",
			"error", err,
			"type", event.Type,
			"budget_ids", event.BudgetIDs,
		)
	}
}
