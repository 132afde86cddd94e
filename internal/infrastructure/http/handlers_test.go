package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/pairing"
	"github.com/rcarvalho-pb/tipbot-go/internal/application/payment"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/device"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	httpapi "github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/outbox"
)

type fakePayments struct {
	startFn      func(amount int64) (payment.StartResult, error)
	confirmFn    func(checkoutID string, amount int64) (payment.ConfirmResult, error)
	abortFn      func(checkoutID string) error
	abortChainFn func(chainID string) error
	current      string
	chains       map[string]chain.Chain
}

func (f *fakePayments) StartPayment(_ context.Context, amount int64) (payment.StartResult, error) {
	return f.startFn(amount)
}

func (f *fakePayments) Confirm(_ context.Context, checkoutID string, amount int64) (payment.ConfirmResult, error) {
	return f.confirmFn(checkoutID, amount)
}

func (f *fakePayments) Abort(checkoutID string) error {
	return f.abortFn(checkoutID)
}

func (f *fakePayments) AbortChain(chainID string) error {
	return f.abortChainFn(chainID)
}

func (f *fakePayments) CurrentCheckout() (string, bool) {
	return f.current, f.current != ""
}

func (f *fakePayments) Chain(chainID string) (chain.Chain, error) {
	c, ok := f.chains[chainID]
	if !ok {
		return chain.Chain{}, chain.ErrChainNotFound
	}
	return c, nil
}

func (f *fakePayments) Chains() []chain.Chain {
	out := make([]chain.Chain, 0, len(f.chains))
	for _, c := range f.chains {
		out = append(out, c)
	}
	return out
}

type fakePairing struct {
	pairFn   func() (pairing.PairResult, error)
	statusFn func(id string) (pairing.StatusResult, error)
}

func (f *fakePairing) Pair(context.Context) (pairing.PairResult, error) {
	return f.pairFn()
}

func (f *fakePairing) Status(_ context.Context, id string) (pairing.StatusResult, error) {
	return f.statusFn(id)
}

type fakeJournal struct {
	events []outbox.OutboxEvent
}

func (f *fakeJournal) FindByAggregate(aggregateID string, _ int) ([]outbox.OutboxEvent, error) {
	var out []outbox.OutboxEvent
	for _, e := range f.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newRouter(p *fakePayments, pr *fakePairing, j *fakeJournal) http.Handler {
	h := &httpapi.Handler{Payments: p, Pairing: pr, Journal: j, Logger: logging.Nop{}}
	return httpapi.NewRouter(h, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	}))
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestPay_ShouldStartPaymentInCents(t *testing.T) {
	var got int64
	p := &fakePayments{startFn: func(amount int64) (payment.StartResult, error) {
		got = amount
		return payment.StartResult{CheckoutID: "C1", Amount: amount, ChainID: "chain-1"}, nil
	}}
	router := newRouter(p, nil, nil)

	form := url.Values{"amount": {"12.50"}}.Encode()
	rec, body := do(t, router, http.MethodPost, "/pay", "application/x-www-form-urlencoded", form)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1250), got)
	require.Equal(t, "C1", body["checkout_id"])
	require.Equal(t, float64(1250), body["amount_cents"])
	require.Equal(t, "chain-1", body["chain_id"])
}

func TestPay_ShouldRejectInvalidAmountWithoutCallingGateway(t *testing.T) {
	p := &fakePayments{startFn: func(int64) (payment.StartResult, error) {
		t.Fatal("unexpected start")
		return payment.StartResult{}, nil
	}}
	router := newRouter(p, nil, nil)

	for _, amount := range []string{"", "abc", "-3", "1.234"} {
		form := url.Values{"amount": {amount}}.Encode()
		rec, body := do(t, router, http.MethodPost, "/pay", "application/x-www-form-urlencoded", form)

		require.Equal(t, http.StatusBadRequest, rec.Code, amount)
		require.NotEmpty(t, body["error"])
	}
}

func TestPay_ShouldMapGatewayFailures(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&checkout.GatewayError{Op: "create checkout", StatusCode: 401}, http.StatusBadGateway},
		{&checkout.GatewayError{Op: "create checkout", Err: gobreaker.ErrOpenState}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		p := &fakePayments{startFn: func(int64) (payment.StartResult, error) {
			return payment.StartResult{}, errors.Wrap(tc.err, "Failed create checkout")
		}}
		form := url.Values{"amount": {"1"}}.Encode()
		rec, _ := do(t, newRouter(p, nil, nil), http.MethodPost, "/pay", "application/x-www-form-urlencoded", form)

		require.Equal(t, tc.want, rec.Code)
	}
}

func TestConfirm_ShouldAcceptFlatAndWebhookBodies(t *testing.T) {
	var gotID string
	var gotAmount int64
	p := &fakePayments{confirmFn: func(id string, amount int64) (payment.ConfirmResult, error) {
		gotID, gotAmount = id, amount
		return payment.ConfirmResult{Result: payment.ResultSuccessful, FollowUpCheckoutID: "C3"}, nil
	}}
	router := newRouter(p, nil, nil)

	rec, body := do(t, router, http.MethodPost, "/confirm", "application/json", `{"checkout_id":"C2","amount":1250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "successful", body["result"])
	require.Equal(t, "C2", gotID)
	require.Equal(t, int64(1250), gotAmount)

	webhook := `{"data":{"object":{"payment":{"terminal_checkout_id":"C7","amount_money":{"amount":900,"currency":"USD"}}}}}`
	rec, _ = do(t, router, http.MethodPost, "/confirm", "application/json", webhook)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "C7", gotID)
	require.Equal(t, int64(900), gotAmount)
}

func TestConfirm_ShouldReportNotCompleted(t *testing.T) {
	p := &fakePayments{confirmFn: func(string, int64) (payment.ConfirmResult, error) {
		return payment.ConfirmResult{Result: payment.ResultNotCompleted}, nil
	}}

	rec, body := do(t, newRouter(p, nil, nil), http.MethodPost, "/confirm", "application/json", `{"checkout_id":"C2","amount":1}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "not completed yet", body["result"])
	require.NotContains(t, body, "follow_up_checkout_id")
}

func TestConfirm_ShouldRejectMalformedBody(t *testing.T) {
	rec, _ := do(t, newRouter(&fakePayments{}, nil, nil), http.MethodPost, "/confirm", "application/json", `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbortResubmit_ShouldMapOutcomes(t *testing.T) {
	p := &fakePayments{abortFn: func(id string) error {
		switch id {
		case "C1":
			return nil
		case "":
			return checkout.InvalidInput("checkout id is required")
		default:
			return errors.Wrapf(checkout.ErrUnknownCheckout, "checkout %s", id)
		}
	}}
	router := newRouter(p, nil, nil)

	rec, body := do(t, router, http.MethodPost, "/abort_resubmit", "application/json", `{"checkout_id":"C1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "aborted", body["result"])

	rec, body = do(t, router, http.MethodPost, "/abort_resubmit", "application/json", `{"checkout_id":"C9"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, body["error"], "unknown checkout")

	rec, _ = do(t, router, http.MethodPost, "/abort_resubmit", "application/json", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentCheckout_ShouldReturnNullWhenEmpty(t *testing.T) {
	p := &fakePayments{}
	router := newRouter(p, nil, nil)

	rec, body := do(t, router, http.MethodGet, "/current_checkout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "checkout_id")
	require.Nil(t, body["checkout_id"])

	p.current = "C2"
	_, body = do(t, router, http.MethodGet, "/last_checkout_id", "", "")
	require.Equal(t, "C2", body["checkout_id"])
}

func TestChains_ShouldExposeChainsAndJournal(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePayments{
		chains: map[string]chain.Chain{
			"chain-1": {ID: "chain-1", CheckoutID: "C2", Amount: 1250, State: chain.StateWatching, Resubmissions: 1, StartedAt: started},
		},
		abortChainFn: func(id string) error {
			if id == "chain-1" {
				return nil
			}
			return chain.ErrChainNotFound
		},
	}
	j := &fakeJournal{events: []outbox.OutboxEvent{
		{ID: "e1", AggregateID: "chain-1", Type: event.ChainStarted, Payload: []byte(`{"chain_id":"chain-1"}`), CreatedAt: started},
		{ID: "e2", AggregateID: "chain-2", Type: event.ChainStarted, Payload: []byte(`{}`), CreatedAt: started},
	}}
	router := newRouter(p, nil, j)

	rec, body := do(t, router, http.MethodGet, "/chains/chain-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "WATCHING", body["state"])
	require.Equal(t, "C2", body["checkout_id"])
	require.NotContains(t, body, "finished_at")

	rec, _ = do(t, router, http.MethodGet, "/chains/missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/chains", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec, _ = do(t, router, http.MethodGet, "/chains/chain-1/events", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	require.Equal(t, "CHAIN_STARTED", events[0]["type"])
	require.Equal(t, "chain-1", events[0]["payload"].(map[string]any)["chain_id"])

	rec, _ = do(t, router, http.MethodPost, "/chains/chain-1/abort", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/chains/missing/abort", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPairing_ShouldPassThrough(t *testing.T) {
	pairBy := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	pr := &fakePairing{
		pairFn: func() (pairing.PairResult, error) {
			return pairing.PairResult{DeviceCodeID: "dc-1", Code: "EBCARJ", Status: "UNPAIRED", PairBy: pairBy, Instructions: pairing.Instructions}, nil
		},
		statusFn: func(id string) (pairing.StatusResult, error) {
			if id == "" {
				return pairing.StatusResult{}, checkout.InvalidInput("device code id is required")
			}
			if id == "dc-missing" {
				return pairing.StatusResult{}, errors.Wrap(&checkout.GatewayError{
					Op:         "get device code",
					StatusCode: http.StatusNotFound,
					Err:        device.ErrUnknownDeviceCode,
				}, "Failed get device code")
			}
			return pairing.StatusResult{Status: "UNPAIRED"}, nil
		},
	}
	router := newRouter(&fakePayments{}, pr, nil)

	rec, body := do(t, router, http.MethodPost, "/pair", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "EBCARJ", body["pairing_code"])
	require.Equal(t, "dc-1", body["device_code_id"])
	require.Equal(t, "2026-01-01T12:05:00Z", body["expires_at"])

	rec, body = do(t, router, http.MethodGet, "/device_status?device_code_id=dc-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "UNPAIRED", body["status"])
	require.Nil(t, body["device_id"])

	rec, _ = do(t, router, http.MethodGet, "/device_status", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, router, http.MethodGet, "/device_status?device_code_id=dc-missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, body["error"], "unknown device code")
	require.NotContains(t, body["error"], "unknown checkout")
}

func TestRouter_ShouldServeIndexAndMetrics(t *testing.T) {
	router := newRouter(&fakePayments{}, nil, nil)

	rec, _ := do(t, router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Enter Price to Pay")

	rec, _ = do(t, router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, "metrics", rec.Body.String())

	rec, _ = do(t, router, http.MethodGet, "/pay", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
