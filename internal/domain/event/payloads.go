package event

type ChainStartedPayload struct {
	ChainID    string `json:"chain_id"`
	CheckoutID string `json:"checkout_id"`
	Amount     int64  `json:"amount"`
}

type CheckoutResubmittedPayload struct {
	ChainID       string `json:"chain_id"`
	OldCheckoutID string `json:"old_checkout_id"`
	NewCheckoutID string `json:"new_checkout_id"`
	Amount        int64  `json:"amount"`
	Resubmission  int    `json:"resubmission"`
}

type ChainFinishedPayload struct {
	ChainID    string `json:"chain_id"`
	CheckoutID string `json:"checkout_id"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	Retryable  bool   `json:"retryable"`
}

type CheckoutConfirmedPayload struct {
	CheckoutID         string `json:"checkout_id"`
	Amount             int64  `json:"amount"`
	FollowUpCheckoutID string `json:"follow_up_checkout_id"`
}
