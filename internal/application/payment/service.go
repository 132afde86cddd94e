package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/contracts"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/metrics"
)

type Engine interface {
	Start(checkoutID string, amount int64) (chain.Chain, error)
	Abort(chainID string) error
}

type AbortRequester interface {
	RequestAbort(checkoutID string) bool
}

// Service is the operator-facing side of the terminal: it starts charges,
// accepts completion notifications and aborts resubmission chains.
type Service struct {
	Gateway  checkout.Gateway
	Ledger   ledger.Ledger
	Aborts   AbortRequester
	Repo     chain.Repository
	Engine   Engine
	Recorder contracts.EventRecorder
	Logger   logging.Logger
	Metrics  *metrics.Counters
	DeviceID string
	Currency string
	NewKey   func() string
}

type StartResult struct {
	CheckoutID string
	Amount     int64
	ChainID    string
}

// StartPayment creates a checkout on the terminal, makes it the current one
// and hands it to the resubmission engine.
func (s *Service) StartPayment(ctx context.Context, amount int64) (StartResult, error) {
	if amount <= 0 {
		return StartResult{}, checkout.InvalidInput("amount must be positive, got %d", amount)
	}

	co, err := s.Gateway.CreateCheckout(ctx, checkout.CreateRequest{
		IdempotencyKey:    s.newKey(),
		Amount:            amount,
		Currency:          s.Currency,
		DeviceID:          s.DeviceID,
		SkipReceiptScreen: true,
	})
	if err != nil {
		s.Metrics.IncGatewayError()
		s.Logger.Error("failed to create checkout", map[string]any{
			"amount": amount,
			"error":  err,
		})
		return StartResult{}, errors.Wrap(err, "Failed create checkout")
	}

	s.Ledger.Record(co.ID, amount)

	c, err := s.Engine.Start(co.ID, amount)
	if err != nil {
		s.Logger.Error("checkout created but not watched", map[string]any{
			"checkout-id": co.ID,
			"amount":      amount,
			"error":       err,
		})
		return StartResult{}, errors.Wrapf(err, "Failed watch checkout %s", co.ID)
	}

	s.Logger.Info("payment started", map[string]any{
		"checkout-id": co.ID,
		"chain-id":    c.ID,
		"amount":      amount,
	})

	return StartResult{CheckoutID: co.ID, Amount: amount, ChainID: c.ID}, nil
}

// Abort flags a checkout id so the chain watching it stops. The live
// checkout on the terminal is left as is.
func (s *Service) Abort(checkoutID string) error {
	if checkoutID == "" {
		return checkout.InvalidInput("checkout id is required")
	}
	if !s.Aborts.RequestAbort(checkoutID) {
		return errors.Wrapf(checkout.ErrUnknownCheckout, "checkout %s", checkoutID)
	}

	s.Logger.Info("resubmission abort requested", map[string]any{
		"checkout-id": checkoutID,
	})
	return nil
}

func (s *Service) AbortChain(chainID string) error {
	if chainID == "" {
		return checkout.InvalidInput("chain id is required")
	}
	if err := s.Engine.Abort(chainID); err != nil {
		return errors.Wrapf(err, "chain %s", chainID)
	}

	s.Logger.Info("chain abort requested", map[string]any{
		"chain-id": chainID,
	})
	return nil
}

func (s *Service) CurrentCheckout() (string, bool) {
	entry := s.Ledger.Current()
	return entry.CheckoutID, !entry.IsZero()
}

func (s *Service) Chain(chainID string) (chain.Chain, error) {
	c, err := s.Repo.FindByID(chainID)
	if err != nil {
		return chain.Chain{}, errors.Wrapf(err, "chain %s", chainID)
	}
	return *c, nil
}

func (s *Service) Chains() []chain.Chain {
	list := s.Repo.List()
	out := make([]chain.Chain, 0, len(list))
	for _, c := range list {
		out = append(out, *c)
	}
	return out
}

func (s *Service) newKey() string {
	if s.NewKey != nil {
		return s.NewKey()
	}
	return uuid.NewString()
}
