package payment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
)

const (
	ResultSuccessful   = "successful"
	ResultNotCompleted = "not completed yet"
)

type ConfirmResult struct {
	Result             string
	FollowUpCheckoutID string
}

// Confirm handles a completion notification. A completed checkout becomes the
// current one, which stops any chain still watching an older id, and the same
// amount is charged again right away. The follow-up charge is not watched.
func (s *Service) Confirm(ctx context.Context, checkoutID string, amount int64) (ConfirmResult, error) {
	if checkoutID == "" {
		return ConfirmResult{}, checkout.InvalidInput("checkout id is required")
	}
	if amount <= 0 {
		return ConfirmResult{}, checkout.InvalidInput("amount must be positive, got %d", amount)
	}

	co, err := s.Gateway.GetCheckout(ctx, checkoutID)
	if err != nil {
		s.Metrics.IncGatewayError()
		s.Logger.Error("failed to look up confirmed checkout", map[string]any{
			"checkout-id": checkoutID,
			"error":       err,
		})
		return ConfirmResult{}, errors.Wrap(err, "Failed get checkout")
	}

	if co.Status != checkout.StatusCompleted {
		s.Logger.Info("confirmation for unfinished checkout ignored", map[string]any{
			"checkout-id": checkoutID,
			"status":      string(co.Status),
		})
		return ConfirmResult{Result: ResultNotCompleted}, nil
	}

	s.Ledger.Record(checkoutID, amount)
	s.Metrics.IncConfirmed()

	next, err := s.Gateway.CreateCheckout(ctx, checkout.CreateRequest{
		IdempotencyKey:    s.newKey(),
		Amount:            amount,
		Currency:          s.Currency,
		DeviceID:          s.DeviceID,
		SkipReceiptScreen: true,
	})
	if err != nil {
		s.Metrics.IncGatewayError()
		s.Logger.Error("failed to create follow-up checkout", map[string]any{
			"checkout-id": checkoutID,
			"amount":      amount,
			"error":       err,
		})
		return ConfirmResult{}, errors.Wrap(err, "Failed create follow-up checkout")
	}
	s.Metrics.IncFollowUpCharged()

	s.record(event.Event{
		Type:        event.CheckoutConfirmed,
		AggregateID: s.aggregateFor(checkoutID),
		Payload: event.CheckoutConfirmedPayload{
			CheckoutID:         checkoutID,
			Amount:             amount,
			FollowUpCheckoutID: next.ID,
		},
	})

	s.Logger.Info("checkout confirmed", map[string]any{
		"checkout-id":           checkoutID,
		"amount":                amount,
		"follow-up-checkout-id": next.ID,
	})

	return ConfirmResult{Result: ResultSuccessful, FollowUpCheckoutID: next.ID}, nil
}

// aggregateFor files the confirmation under the chain that produced the
// checkout, if any.
func (s *Service) aggregateFor(checkoutID string) string {
	for _, c := range s.Repo.List() {
		if c.CheckoutID == checkoutID {
			return c.ID
		}
	}
	return checkoutID
}

func (s *Service) record(evt event.Event) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(evt); err != nil {
		s.Logger.Error("failed to record event", map[string]any{
			"aggregate-id": evt.AggregateID,
			"type":         string(evt.Type),
			"error":        err,
		})
	}
}
