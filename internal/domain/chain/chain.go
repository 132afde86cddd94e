package chain

import "time"

type State string

const (
	StateWatching     State = "WATCHING"
	StateCompleted    State = "COMPLETED"
	StateAborted      State = "ABORTED"
	StateSuperseded   State = "SUPERSEDED"
	StateGatewayError State = "GATEWAY_ERROR"
	StateTimedOut     State = "TIMED_OUT"
)

func (s State) Terminal() bool {
	return s != StateWatching && s != ""
}

// Chain is the sequence of checkouts produced by resubmitting a single
// payment. ID is stable; CheckoutID follows every cancel/recreate.
type Chain struct {
	ID            string
	CheckoutID    string
	Amount        int64
	State         State
	Resubmissions int
	Reason        string
	StartedAt     time.Time
	FinishedAt    time.Time
}
