package contracts

import "github.com/rcarvalho-pb/tipbot-go/internal/domain/event"

type EventRecorder interface {
	Record(event.Event) error
}
