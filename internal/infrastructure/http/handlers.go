package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/pairing"
	"github.com/rcarvalho-pb/tipbot-go/internal/application/payment"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/device"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/outbox"
)

//go:embed static/index.html
var indexHTML []byte

const maxBodyBytes = 1 << 20

type PaymentService interface {
	StartPayment(ctx context.Context, amount int64) (payment.StartResult, error)
	Confirm(ctx context.Context, checkoutID string, amount int64) (payment.ConfirmResult, error)
	Abort(checkoutID string) error
	AbortChain(chainID string) error
	CurrentCheckout() (string, bool)
	Chain(chainID string) (chain.Chain, error)
	Chains() []chain.Chain
}

type PairingService interface {
	Pair(ctx context.Context) (pairing.PairResult, error)
	Status(ctx context.Context, deviceCodeID string) (pairing.StatusResult, error)
}

type EventJournal interface {
	FindByAggregate(aggregateID string, limit int) ([]outbox.OutboxEvent, error)
}

type Handler struct {
	Payments PaymentService
	Pairing  PairingService
	Journal  EventJournal
	Logger   logging.Logger
}

type PayResponse struct {
	CheckoutID  string `json:"checkout_id"`
	AmountCents int64  `json:"amount_cents"`
	ChainID     string `json:"chain_id"`
}

// ConfirmRequest accepts either a flat body or the payment webhook shape
// {data:{object:{payment:{terminal_checkout_id, amount_money:{amount}}}}}.
type ConfirmRequest struct {
	CheckoutID string `json:"checkout_id"`
	Amount     int64  `json:"amount"`
	Data       *struct {
		Object struct {
			Payment struct {
				TerminalCheckoutID string `json:"terminal_checkout_id"`
				AmountMoney        struct {
					Amount int64 `json:"amount"`
				} `json:"amount_money"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data,omitempty"`
}

func (c ConfirmRequest) resolve() (string, int64) {
	if c.CheckoutID == "" && c.Data != nil {
		p := c.Data.Object.Payment
		return p.TerminalCheckoutID, p.AmountMoney.Amount
	}
	return c.CheckoutID, c.Amount
}

type ConfirmResponse struct {
	Result             string `json:"result"`
	FollowUpCheckoutID string `json:"follow_up_checkout_id,omitempty"`
}

type AbortRequest struct {
	CheckoutID string `json:"checkout_id"`
}

type ChainResponse struct {
	ID            string     `json:"id"`
	CheckoutID    string     `json:"checkout_id"`
	Amount        int64      `json:"amount_cents"`
	State         string     `json:"state"`
	Resubmissions int        `json:"resubmissions"`
	Reason        string     `json:"reason,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

func toChainResponse(c chain.Chain) ChainResponse {
	resp := ChainResponse{
		ID:            c.ID,
		CheckoutID:    c.CheckoutID,
		Amount:        c.Amount,
		State:         string(c.State),
		Resubmissions: c.Resubmissions,
		Reason:        c.Reason,
		StartedAt:     c.StartedAt,
	}
	if !c.FinishedAt.IsZero() {
		finished := c.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}

type EventResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Published bool            `json:"published"`
	CreatedAt time.Time       `json:"created_at"`
}

type PairResponse struct {
	DeviceCodeID string    `json:"device_code_id"`
	PairingCode  string    `json:"pairing_code"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expires_at"`
	Instructions string    `json:"instructions"`
}

type DeviceStatusResponse struct {
	Status   string  `json:"status"`
	DeviceID *string `json:"device_id"`
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return
	}

	amount, err := payment.ParseAmount(r.PostFormValue("amount"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.Payments.StartPayment(r.Context(), amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PayResponse{
		CheckoutID:  res.CheckoutID,
		AmountCents: res.Amount,
		ChainID:     res.ChainID,
	})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	checkoutID, amount := req.resolve()
	res, err := h.Payments.Confirm(r.Context(), checkoutID, amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmResponse{
		Result:             res.Result,
		FollowUpCheckoutID: res.FollowUpCheckoutID,
	})
}

func (h *Handler) AbortResubmit(w http.ResponseWriter, r *http.Request) {
	var req AbortRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Payments.Abort(req.CheckoutID); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "aborted"})
}

func (h *Handler) CurrentCheckout(w http.ResponseWriter, r *http.Request) {
	var id *string
	if current, ok := h.Payments.CurrentCheckout(); ok {
		id = &current
	}
	writeJSON(w, http.StatusOK, map[string]*string{"checkout_id": id})
}

func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	chains := h.Payments.Chains()
	resp := make([]ChainResponse, 0, len(chains))
	for _, c := range chains {
		resp = append(resp, toChainResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetChain(w http.ResponseWriter, r *http.Request) {
	c, err := h.Payments.Chain(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChainResponse(c))
}

func (h *Handler) AbortChain(w http.ResponseWriter, r *http.Request) {
	if err := h.Payments.AbortChain(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"result": "aborting"})
}

func (h *Handler) ChainEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Payments.Chain(id); err != nil {
		h.writeError(w, err)
		return
	}

	events, err := h.Journal.FindByAggregate(id, 100)
	if err != nil {
		h.writeError(w, errors.Wrap(err, "Failed load chain events"))
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, evt := range events {
		resp = append(resp, EventResponse{
			ID:        evt.ID,
			Type:      string(evt.Type),
			Payload:   json.RawMessage(evt.Payload),
			Published: evt.Published,
			CreatedAt: evt.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Pair(w http.ResponseWriter, r *http.Request) {
	res, err := h.Pairing.Pair(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PairResponse{
		DeviceCodeID: res.DeviceCodeID,
		PairingCode:  res.Code,
		Status:       res.Status,
		ExpiresAt:    res.PairBy,
		Instructions: res.Instructions,
	})
}

func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Pairing.Status(r.Context(), r.URL.Query().Get("device_code_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := DeviceStatusResponse{Status: res.Status}
	if res.DeviceID != "" {
		resp.DeviceID = &res.DeviceID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", map[string]any{
			"status": status,
			"error":  err,
		})
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrUnknownCheckout), errors.Is(err, chain.ErrChainNotFound),
		errors.Is(err, device.ErrUnknownDeviceCode):
		return http.StatusNotFound
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case checkout.IsGatewayError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
