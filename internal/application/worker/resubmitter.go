package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/contracts"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/metrics"
)

var ErrStopped = errors.New("resubmitter stopped")

type AbortRegistry interface {
	Register(checkoutID string)
	IsAborted(checkoutID string) bool
	Retarget(oldID, newID string) bool
	Prune(checkoutID string)
	Done(checkoutID string) <-chan struct{}
}

// Resubmitter watches a checkout and, whenever it is still PENDING after a
// full cycle, cancels it and creates an identical one. Each chain runs in its
// own goroutine until the payment completes, is aborted or superseded, the
// gateway fails, or MaxDuration elapses.
type Resubmitter struct {
	Gateway  checkout.Gateway
	Ledger   ledger.Ledger
	Aborts   AbortRegistry
	Chains   chain.Repository
	Recorder contracts.EventRecorder
	Logger   logging.Logger
	Metrics  *metrics.Counters
	Config   Config
	DeviceID string
	Currency string
	NewKey   func() string
	Now      func() time.Time

	mu      sync.Mutex
	running map[string]*run
	stopped bool
	wg      sync.WaitGroup
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start registers checkoutID for abort before returning, so an abort issued
// right after the charge was created is never lost.
func (r *Resubmitter) Start(checkoutID string, amount int64) (chain.Chain, error) {
	if checkoutID == "" {
		return chain.Chain{}, checkout.InvalidInput("checkout id is required")
	}
	if amount <= 0 {
		return chain.Chain{}, checkout.InvalidInput("amount must be positive, got %d", amount)
	}

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return chain.Chain{}, ErrStopped
	}

	r.Aborts.Register(checkoutID)

	c := &chain.Chain{
		ID:         uuid.NewString(),
		CheckoutID: checkoutID,
		Amount:     amount,
		State:      chain.StateWatching,
		StartedAt:  r.now(),
	}
	if err := r.Chains.Save(c); err != nil {
		return chain.Chain{}, errors.Wrap(err, "Failed save chain")
	}

	r.record(event.Event{
		Type:        event.ChainStarted,
		AggregateID: c.ID,
		Payload: event.ChainStartedPayload{
			ChainID:    c.ID,
			CheckoutID: checkoutID,
			Amount:     amount,
		},
	})
	r.Metrics.IncStarted()

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		r.finish(c.ID, checkoutID, chain.StateAborted, "shutting down")
		return chain.Chain{}, ErrStopped
	}
	if r.running == nil {
		r.running = make(map[string]*run)
	}
	r.running[c.ID] = rn
	r.wg.Add(1)
	r.mu.Unlock()

	r.Logger.Info("resubmission chain started", map[string]any{
		"chain-id":    c.ID,
		"checkout-id": checkoutID,
		"amount":      amount,
	})

	go func() {
		defer r.wg.Done()
		defer close(rn.done)
		defer r.forget(c.ID)
		defer cancel()
		r.watch(ctx, c.ID, checkoutID, amount)
	}()

	return *c, nil
}

// Abort stops a running chain at its next wait. Aborting a finished chain is
// a no-op.
func (r *Resubmitter) Abort(chainID string) error {
	r.mu.Lock()
	rn, ok := r.running[chainID]
	r.mu.Unlock()

	if !ok {
		_, err := r.Chains.FindByID(chainID)
		return err
	}
	rn.cancel()
	return nil
}

// Wait blocks until the chain's goroutine has exited.
func (r *Resubmitter) Wait(chainID string) {
	r.mu.Lock()
	rn, ok := r.running[chainID]
	r.mu.Unlock()

	if ok {
		<-rn.done
	}
}

func (r *Resubmitter) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	for _, rn := range r.running {
		rn.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "Failed stop resubmitter")
	}
}

func (r *Resubmitter) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

func (r *Resubmitter) watch(ctx context.Context, chainID, checkoutID string, amount int64) {
	started := r.now()
	current := checkoutID

	for r.now().Sub(started) < r.Config.MaxDuration {
		if reason := r.waitCycle(ctx, current); reason != "" {
			r.finish(chainID, current, chain.StateAborted, reason)
			return
		}

		if latest := r.Ledger.Current(); latest.CheckoutID != current {
			r.finish(chainID, current, chain.StateSuperseded, "superseded by "+latest.CheckoutID)
			return
		}

		callCtx, cancel := r.callContext(ctx)
		co, err := r.Gateway.GetCheckout(callCtx, current)
		cancel()
		if err != nil {
			r.gatewayFailed(chainID, current, err)
			return
		}

		if co.Status != checkout.StatusPending {
			r.finish(chainID, current, chain.StateCompleted, "checkout "+string(co.Status))
			return
		}

		next, err := r.resubmit(ctx, current, amount)
		if err != nil {
			var rejected *cancelRejectedError
			if errors.As(err, &rejected) {
				r.cancelRejected(chainID, current, rejected.err)
				return
			}
			r.gatewayFailed(chainID, current, err)
			return
		}

		abortedMeanwhile := r.Aborts.Retarget(current, next.ID)
		r.Ledger.Record(next.ID, amount)
		if err := r.Chains.UpdateCheckout(chainID, next.ID); err != nil {
			r.Logger.Error("failed to update chain", map[string]any{
				"chain-id": chainID,
				"error":    err,
			})
		}

		resubmission := r.resubmissions(chainID)
		r.record(event.Event{
			Type:        event.CheckoutResubmitted,
			AggregateID: chainID,
			Payload: event.CheckoutResubmittedPayload{
				ChainID:       chainID,
				OldCheckoutID: current,
				NewCheckoutID: next.ID,
				Amount:        amount,
				Resubmission:  resubmission,
			},
		})
		r.Metrics.IncResubmitted()
		r.Logger.Info("stalled checkout resubmitted", map[string]any{
			"chain-id":        chainID,
			"old-checkout-id": current,
			"checkout-id":     next.ID,
			"amount":          amount,
			"resubmission":    resubmission,
		})

		current = next.ID

		if abortedMeanwhile {
			r.finish(chainID, current, chain.StateAborted, "abort requested during resubmission")
			return
		}
	}

	r.Aborts.Prune(current)
	r.finish(chainID, current, chain.StateTimedOut, "gave up after "+r.Config.MaxDuration.String())
}

// waitCycle returns a non-empty reason when the chain must stop.
func (r *Resubmitter) waitCycle(ctx context.Context, checkoutID string) string {
	abortCh := r.Aborts.Done(checkoutID)

	ticker := time.NewTicker(r.Config.TickInterval)
	defer ticker.Stop()

	for i := 0; i < r.Config.TicksPerCycle; i++ {
		if r.Aborts.IsAborted(checkoutID) {
			return "abort requested"
		}
		select {
		case <-ctx.Done():
			return "chain cancelled"
		case <-abortCh:
			return "abort requested"
		case <-ticker.C:
		}
	}

	if r.Aborts.IsAborted(checkoutID) {
		return "abort requested"
	}
	return ""
}

func (r *Resubmitter) resubmit(ctx context.Context, oldID string, amount int64) (*checkout.Checkout, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if err := r.Gateway.CancelCheckout(callCtx, oldID); err != nil {
		if checkout.IsRejection(err) {
			return nil, &cancelRejectedError{err: err}
		}
		return nil, err
	}

	return r.Gateway.CreateCheckout(callCtx, checkout.CreateRequest{
		IdempotencyKey:    r.newKey(),
		Amount:            amount,
		Currency:          r.Currency,
		DeviceID:          r.DeviceID,
		SkipReceiptScreen: true,
	})
}

// callContext survives chain cancellation so an abort never interrupts a
// cancel/create pair halfway.
func (r *Resubmitter) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if r.Config.GatewayTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, r.Config.GatewayTimeout)
}

func (r *Resubmitter) gatewayFailed(chainID, checkoutID string, err error) {
	r.Metrics.IncGatewayError()
	r.Logger.Error("gateway call failed, chain stopped", map[string]any{
		"chain-id":    chainID,
		"checkout-id": checkoutID,
		"error":       err,
	})
	r.finish(chainID, checkoutID, chain.StateGatewayError, err.Error())
}

// cancelRejectedError marks a cancel the provider refused, typically
// because the customer paid between the status lookup and the cancel.
type cancelRejectedError struct {
	err error
}

func (e *cancelRejectedError) Error() string { return e.err.Error() }
func (e *cancelRejectedError) Unwrap() error { return e.err }

// cancelRejected stops the chain without asking for a manual resubmission:
// the checkout may already be paid.
func (r *Resubmitter) cancelRejected(chainID, checkoutID string, err error) {
	r.Metrics.IncGatewayError()
	r.Logger.Warn("cancel rejected, checkout may have completed", map[string]any{
		"chain-id":    chainID,
		"checkout-id": checkoutID,
		"error":       err,
	})
	r.finishChain(chainID, checkoutID, chain.StateGatewayError,
		"cancel rejected, verify checkout before charging again: "+err.Error(), false)
}

func (r *Resubmitter) finish(chainID, checkoutID string, state chain.State, reason string) {
	retryable := state == chain.StateGatewayError || state == chain.StateTimedOut
	r.finishChain(chainID, checkoutID, state, reason, retryable)
}

// finishChain closes the chain. retryable marks a payment that was never
// collected and needs an operator to charge again.
func (r *Resubmitter) finishChain(chainID, checkoutID string, state chain.State, reason string, retryable bool) {
	if err := r.Chains.Finish(chainID, state, reason); err != nil {
		r.Logger.Error("failed to finish chain", map[string]any{
			"chain-id": chainID,
			"error":    err,
		})
	}

	r.record(event.Event{
		Type:        event.ChainFinished,
		AggregateID: chainID,
		Payload: event.ChainFinishedPayload{
			ChainID:    chainID,
			CheckoutID: checkoutID,
			State:      string(state),
			Reason:     reason,
			Retryable:  retryable,
		},
	})
	r.Metrics.IncFinished(string(state))

	fields := map[string]any{
		"chain-id":    chainID,
		"checkout-id": checkoutID,
		"state":       string(state),
		"reason":      reason,
	}
	switch state {
	case chain.StateGatewayError, chain.StateTimedOut:
		r.Logger.Warn("resubmission chain finished", fields)
	default:
		r.Logger.Info("resubmission chain finished", fields)
	}
}

func (r *Resubmitter) record(evt event.Event) {
	if err := r.Recorder.Record(evt); err != nil {
		r.Logger.Error("failed to record chain event", map[string]any{
			"chain-id": evt.AggregateID,
			"type":     string(evt.Type),
			"error":    err,
		})
	}
}

func (r *Resubmitter) resubmissions(chainID string) int {
	c, err := r.Chains.FindByID(chainID)
	if err != nil {
		return 0
	}
	return c.Resubmissions
}

func (r *Resubmitter) forget(chainID string) {
	r.mu.Lock()
	delete(r.running, chainID)
	r.mu.Unlock()
}

func (r *Resubmitter) newKey() string {
	if r.NewKey != nil {
		return r.NewKey()
	}
	return NewIdempotencyKey()
}

func (r *Resubmitter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
