package payment

import (
	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

// ChainEventHandler reports journaled chain events. Retryable chains that
// end in GATEWAY_ERROR or TIMED_OUT left a charge uncollected and are logged
// as errors so an operator resubmits by hand.
type ChainEventHandler struct {
	Logger logging.Logger
}

func (h *ChainEventHandler) Handle(evt event.Event) error {
	switch evt.Type {
	case event.ChainStarted:
		payload, ok := evt.Payload.(event.ChainStartedPayload)
		if !ok {
			return errors.New("invalid payload for ChainStarted")
		}
		h.Logger.Info("chain journaled", map[string]any{
			"chain-id":    payload.ChainID,
			"checkout-id": payload.CheckoutID,
			"amount":      payload.Amount,
		})

	case event.CheckoutResubmitted:
		payload, ok := evt.Payload.(event.CheckoutResubmittedPayload)
		if !ok {
			return errors.New("invalid payload for CheckoutResubmitted")
		}
		h.Logger.Info("resubmission journaled", map[string]any{
			"chain-id":        payload.ChainID,
			"old-checkout-id": payload.OldCheckoutID,
			"checkout-id":     payload.NewCheckoutID,
			"resubmission":    payload.Resubmission,
		})

	case event.ChainFinished:
		payload, ok := evt.Payload.(event.ChainFinishedPayload)
		if !ok {
			return errors.New("invalid payload for ChainFinished")
		}
		fields := map[string]any{
			"chain-id":    payload.ChainID,
			"checkout-id": payload.CheckoutID,
			"state":       payload.State,
			"reason":      payload.Reason,
		}
		switch state := chain.State(payload.State); {
		case (state == chain.StateGatewayError || state == chain.StateTimedOut) && payload.Retryable:
			h.Logger.Error("payment left uncollected, resubmit manually", fields)
		case state == chain.StateGatewayError:
			h.Logger.Warn("chain stopped, verify checkout on the terminal before charging again", fields)
		default:
			h.Logger.Info("chain closed", fields)
		}

	case event.CheckoutConfirmed:
		payload, ok := evt.Payload.(event.CheckoutConfirmedPayload)
		if !ok {
			return errors.New("invalid payload for CheckoutConfirmed")
		}
		h.Logger.Info("confirmation journaled", map[string]any{
			"checkout-id":           payload.CheckoutID,
			"amount":                payload.Amount,
			"follow-up-checkout-id": payload.FollowUpCheckoutID,
		})
	}

	return nil
}
