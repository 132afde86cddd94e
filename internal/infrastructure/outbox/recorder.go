package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
)

type Recorder struct {
	Repo Repository
	Now  func() time.Time
}

func (r *Recorder) Record(evt event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return errors.Wrapf(err, "Failed marshal %s payload", evt.Type)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return r.Repo.Save(OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: evt.AggregateID,
		Type:        evt.Type,
		Payload:     payload,
		CreatedAt:   now().UTC(),
	})
}
