package square_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/device"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/square"
)

func newClient(t *testing.T, handler http.HandlerFunc) *square.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return square.NewClient(square.Config{
		BaseURL:     srv.URL,
		AccessToken: "token-1",
		APIVersion:  "2024-10-17",
		LocationID:  "loc-1",
		Timeout:     time.Second,
	}, logging.Nop{})
}

func TestClient_CreateCheckout_ShouldSendTerminalCheckout(t *testing.T) {
	var body map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/terminals/checkouts", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.Equal(t, "2024-10-17", r.Header.Get("Square-Version"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		_, _ = io.WriteString(w, `{"checkout":{"id":"C1","amount_money":{"amount":1250,"currency":"USD"},
			"device_options":{"device_id":"device-1"},"status":"PENDING","created_at":"2026-01-02T03:04:05Z"}}`)
	})

	co, err := client.CreateCheckout(context.Background(), checkout.CreateRequest{
		IdempotencyKey:    "key-1",
		Amount:            1250,
		Currency:          "USD",
		DeviceID:          "device-1",
		SkipReceiptScreen: true,
	})

	require.NoError(t, err)
	require.Equal(t, "C1", co.ID)
	require.Equal(t, int64(1250), co.Amount)
	require.Equal(t, checkout.StatusPending, co.Status)
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), co.CreatedAt.UTC())

	require.Equal(t, "key-1", body["idempotency_key"])
	sent := body["checkout"].(map[string]any)
	require.Equal(t, float64(1250), sent["amount_money"].(map[string]any)["amount"])
	options := sent["device_options"].(map[string]any)
	require.Equal(t, "device-1", options["device_id"])
	require.Equal(t, true, options["skip_receipt_screen"])
}

func TestClient_CreateCheckout_ShouldOmitReceiptFlagByDefault(t *testing.T) {
	var body map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"checkout":{"id":"C1","status":"PENDING"}}`)
	})

	_, err := client.CreateCheckout(context.Background(), checkout.CreateRequest{IdempotencyKey: "k", Amount: 100, DeviceID: "d"})

	require.NoError(t, err)
	options := body["checkout"].(map[string]any)["device_options"].(map[string]any)
	require.NotContains(t, options, "skip_receipt_screen")
}

func TestClient_GetCheckout_ShouldMapNotFoundToUnknownCheckout(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/terminals/checkouts/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND","detail":"no such checkout"}]}`)
	})

	_, err := client.GetCheckout(context.Background(), "missing")

	require.True(t, errors.Is(err, checkout.ErrUnknownCheckout))
	var gwErr *checkout.GatewayError
	require.True(t, errors.As(err, &gwErr))
	require.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	require.Equal(t, []string{"INVALID_REQUEST_ERROR/NOT_FOUND: no such checkout"}, gwErr.Details)
}

func TestClient_GetDeviceCode_ShouldMapNotFoundToUnknownDeviceCode(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/devices/codes/dc-missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND"}]}`)
	})

	_, err := client.GetDeviceCode(context.Background(), "dc-missing")

	require.True(t, errors.Is(err, device.ErrUnknownDeviceCode))
	require.False(t, errors.Is(err, checkout.ErrUnknownCheckout))
	require.Contains(t, err.Error(), "unknown device code")
}

func TestClient_CancelCheckout_ShouldPostToCancelEndpoint(t *testing.T) {
	var path string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.Method + " " + r.URL.Path
		_, _ = io.WriteString(w, `{"checkout":{"id":"C1","status":"CANCEL_REQUESTED"}}`)
	})

	require.NoError(t, client.CancelCheckout(context.Background(), "C1"))
	require.Equal(t, "POST /v2/terminals/checkouts/C1/cancel", path)
}

func TestClient_ShouldTreatErrorsInBodyAsGatewayError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"category":"API_ERROR","code":"INTERNAL_SERVER_ERROR"}]}`)
	})

	_, err := client.GetCheckout(context.Background(), "C1")

	require.True(t, checkout.IsGatewayError(err))
	require.False(t, errors.Is(err, checkout.ErrUnknownCheckout))
}

func TestClient_ShouldOpenBreakerAfterRepeatedOutages(t *testing.T) {
	calls := 0
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetCheckout(context.Background(), "C1")
		require.True(t, checkout.IsGatewayError(err))
	}

	_, err := client.GetCheckout(context.Background(), "C1")

	require.True(t, errors.Is(err, gobreaker.ErrOpenState))
	require.True(t, checkout.IsGatewayError(err))
	require.Equal(t, 5, calls)
}

func TestClient_ShouldNotOpenBreakerOnRejections(t *testing.T) {
	calls := 0
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"BAD_REQUEST"}]}`)
	})

	for i := 0; i < 8; i++ {
		_, err := client.GetCheckout(context.Background(), "C1")
		require.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	require.Equal(t, 8, calls)
}

func TestClient_DeviceCodes_ShouldRoundTrip(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /v2/devices/codes":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			code := req["device_code"].(map[string]any)
			require.Equal(t, "TERMINAL_API", code["product_type"])
			require.Equal(t, "Bar", code["name"])
			require.Equal(t, "loc-1", code["location_id"])
			_, _ = io.WriteString(w, `{"device_code":{"id":"dc-1","code":"EBCARJ","status":"UNPAIRED","pair_by":"2026-01-02T03:09:05Z"}}`)
		case "GET /v2/devices/codes/dc-1":
			_, _ = io.WriteString(w, `{"device_code":{"id":"dc-1","status":"PAIRED","device_id":"device-9"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	code, err := client.CreateDeviceCode(context.Background(), "key-1", "Bar")
	require.NoError(t, err)
	require.Equal(t, "EBCARJ", code.Code)
	require.Equal(t, time.Date(2026, 1, 2, 3, 9, 5, 0, time.UTC), code.PairBy.UTC())

	paired, err := client.GetDeviceCode(context.Background(), "dc-1")
	require.NoError(t, err)
	require.Equal(t, "PAIRED", paired.Status)
	require.Equal(t, "device-9", paired.DeviceID)
}
