package event

type Type string

const (
	ChainStarted        Type = "CHAIN_STARTED"
	CheckoutResubmitted Type = "CHECKOUT_RESUBMITTED"
	ChainFinished       Type = "CHAIN_FINISHED"
	CheckoutConfirmed   Type = "CHECKOUT_CONFIRMED"
)

// Event carries a lifecycle fact about one chain. AggregateID is the chain id,
// or the confirmed checkout id for confirmations that belong to no chain.
type Event struct {
	Type        Type
	AggregateID string
	Payload     any
}
