package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

type Publisher interface {
	Publish(event.Event) error
}

type Dispatcher struct {
	Repo         Repository
	EventBus     Publisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.DispatchOnce()
			return
		case <-ticker.C:
			d.DispatchOnce()
		}
	}
}

// DispatchOnce publishes one batch. An event whose handlers fail stays
// unpublished and is retried on the next poll; an undecodable one is
// marked published so it cannot block the journal.
func (d *Dispatcher) DispatchOnce() {
	events, err := d.Repo.FindUnpublished(d.BatchSize)
	if err != nil {
		d.logError("failed to load unpublished events", map[string]any{"error": err})
		return
	}

	for _, evt := range events {
		payload, err := event.DecodePayload(evt.Type, evt.Payload)
		if err != nil {
			d.logError("dropping undecodable event", map[string]any{
				"event-id": evt.ID,
				"error":    err,
			})
			_ = d.Repo.MarkPublished(evt.ID)
			continue
		}

		domainEvent := event.Event{
			Type:        evt.Type,
			AggregateID: evt.AggregateID,
			Payload:     payload,
		}

		if err := d.EventBus.Publish(domainEvent); err != nil {
			d.logError("failed to publish event", map[string]any{
				"event-id": evt.ID,
				"type":     evt.Type,
				"error":    err,
			})
			continue
		}

		if err := d.Repo.MarkPublished(evt.ID); err != nil {
			d.logError("failed to mark event published", map[string]any{
				"event-id": evt.ID,
				"error":    err,
			})
		}
	}
}

func (d *Dispatcher) logError(msg string, fields map[string]any) {
	if d.Logger != nil {
		d.Logger.Error(msg, fields)
	}
}
