package outbox

import (
	"time"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
)

type OutboxEvent struct {
	ID          string
	AggregateID string
	Type        event.Type
	Payload     []byte
	Published   bool
	CreatedAt   time.Time
}

type Repository interface {
	Save(OutboxEvent) error
	FindUnpublished(int) ([]OutboxEvent, error)
	MarkPublished(string) error
	FindByAggregate(aggregateID string, limit int) ([]OutboxEvent, error)
}
