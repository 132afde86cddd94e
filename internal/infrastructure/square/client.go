package square

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/device"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

const (
	ProductionURL     = "https://connect.squareup.com"
	SandboxURL        = "https://connect.squareupsandbox.com"
	DefaultAPIVersion = "2024-10-17"

	maxResponseBytes = 1 << 20
)

type Config struct {
	BaseURL     string
	AccessToken string
	APIVersion  string
	LocationID  string
	Timeout     time.Duration
}

// Client talks to the Square Terminal and Devices APIs. It implements
// checkout.Gateway and device.PairingGateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     logging.Logger
}

func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ProductionURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(breakerSettings(logger)),
		logger:     logger,
	}
}

func breakerSettings(logger logging.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "square",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// rejections are answers from a healthy API, not outages
		IsSuccessful: func(err error) bool {
			return err == nil || checkout.IsRejection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}
}

func (c *Client) CreateCheckout(ctx context.Context, req checkout.CreateRequest) (*checkout.Checkout, error) {
	body := createCheckoutRequest{
		IdempotencyKey: req.IdempotencyKey,
		Checkout: terminalCheckout{
			AmountMoney: money{Amount: req.Amount, Currency: req.Currency},
			DeviceOptions: deviceCheckoutOptions{
				DeviceID: req.DeviceID,
			},
		},
	}
	if req.SkipReceiptScreen {
		skip := true
		body.Checkout.DeviceOptions.SkipReceiptScreen = &skip
	}

	var out checkoutResponse
	if err := c.do(ctx, "create checkout", http.MethodPost, "/v2/terminals/checkouts", checkout.ErrUnknownCheckout, body, &out); err != nil {
		return nil, err
	}
	return toCheckout("create checkout", out.Checkout)
}

func (c *Client) GetCheckout(ctx context.Context, id string) (*checkout.Checkout, error) {
	var out checkoutResponse
	path := "/v2/terminals/checkouts/" + url.PathEscape(id)
	if err := c.do(ctx, "get checkout", http.MethodGet, path, checkout.ErrUnknownCheckout, nil, &out); err != nil {
		return nil, err
	}
	return toCheckout("get checkout", out.Checkout)
}

func (c *Client) CancelCheckout(ctx context.Context, id string) error {
	var out checkoutResponse
	path := "/v2/terminals/checkouts/" + url.PathEscape(id) + "/cancel"
	return c.do(ctx, "cancel checkout", http.MethodPost, path, checkout.ErrUnknownCheckout, nil, &out)
}

func (c *Client) CreateDeviceCode(ctx context.Context, idempotencyKey, name string) (*device.PairingCode, error) {
	body := createDeviceCodeRequest{
		IdempotencyKey: idempotencyKey,
		DeviceCode: deviceCode{
			Name:        name,
			ProductType: device.ProductTerminalAPI,
			LocationID:  c.cfg.LocationID,
		},
	}

	var out deviceCodeResponse
	if err := c.do(ctx, "create device code", http.MethodPost, "/v2/devices/codes", device.ErrUnknownDeviceCode, body, &out); err != nil {
		return nil, err
	}
	return toPairingCode("create device code", out.DeviceCode)
}

func (c *Client) GetDeviceCode(ctx context.Context, id string) (*device.PairingCode, error) {
	var out deviceCodeResponse
	path := "/v2/devices/codes/" + url.PathEscape(id)
	if err := c.do(ctx, "get device code", http.MethodGet, path, device.ErrUnknownDeviceCode, nil, &out); err != nil {
		return nil, err
	}
	return toPairingCode("get device code", out.DeviceCode)
}

// do runs one call through the breaker. notFound is the sentinel a 404
// answer unwraps to.
func (c *Client) do(ctx context.Context, op, method, path string, notFound error, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, op, method, path, notFound, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &checkout.GatewayError{Op: op, Err: err}
	}
	if err != nil {
		c.logger.Warn("square request failed", map[string]any{
			"op":    op,
			"path":  path,
			"error": err,
		})
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, notFound error, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &checkout.GatewayError{Op: op, Err: errors.Wrap(err, "Failed marshal")}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return &checkout.GatewayError{Op: op, Err: errors.Wrap(err, "Failed new request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Square-Version", c.cfg.APIVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &checkout.GatewayError{Op: op, Err: errors.Wrap(err, "Failed do request")}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &checkout.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "Failed read body")}
	}

	var envelope errorEnvelope
	_ = json.Unmarshal(b, &envelope)

	if resp.StatusCode >= http.StatusMultipleChoices || len(envelope.Errors) > 0 {
		gwErr := &checkout.GatewayError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Details:    errorDetails(envelope.Errors),
		}
		if resp.StatusCode == http.StatusNotFound {
			gwErr.Err = notFound
		}
		return gwErr
	}

	if err := json.Unmarshal(b, out); err != nil {
		return &checkout.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "Failed unmarshal")}
	}
	return nil
}

func errorDetails(apiErrors []apiError) []string {
	details := make([]string, 0, len(apiErrors))
	for _, e := range apiErrors {
		d := e.Category + "/" + e.Code
		if e.Detail != "" {
			d += ": " + e.Detail
		}
		details = append(details, d)
	}
	return details
}

func toCheckout(op string, tc *terminalCheckout) (*checkout.Checkout, error) {
	if tc == nil || tc.ID == "" {
		return nil, &checkout.GatewayError{Op: op, Err: errors.New("response without checkout")}
	}
	co := &checkout.Checkout{
		ID:       tc.ID,
		Amount:   tc.AmountMoney.Amount,
		Currency: tc.AmountMoney.Currency,
		DeviceID: tc.DeviceOptions.DeviceID,
		Status:   checkout.Status(tc.Status),
	}
	if ts, err := time.Parse(time.RFC3339, tc.CreatedAt); err == nil {
		co.CreatedAt = ts
	}
	return co, nil
}

func toPairingCode(op string, dc *deviceCode) (*device.PairingCode, error) {
	if dc == nil || dc.ID == "" {
		return nil, &checkout.GatewayError{Op: op, Err: errors.New("response without device code")}
	}
	pc := &device.PairingCode{
		ID:       dc.ID,
		Code:     dc.Code,
		Name:     dc.Name,
		Status:   dc.Status,
		DeviceID: dc.DeviceID,
	}
	if ts, err := time.Parse(time.RFC3339, dc.PairBy); err == nil {
		pc.PairBy = ts
	}
	return pc, nil
}
