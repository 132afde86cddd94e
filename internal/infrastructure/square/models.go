package square

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type deviceCheckoutOptions struct {
	DeviceID          string `json:"device_id"`
	SkipReceiptScreen *bool  `json:"skip_receipt_screen,omitempty"`
}

type terminalCheckout struct {
	ID            string                `json:"id,omitempty"`
	AmountMoney   money                 `json:"amount_money"`
	DeviceOptions deviceCheckoutOptions `json:"device_options"`
	Status        string                `json:"status,omitempty"`
	LocationID    string                `json:"location_id,omitempty"`
	CreatedAt     string                `json:"created_at,omitempty"`
}

type createCheckoutRequest struct {
	IdempotencyKey string           `json:"idempotency_key"`
	Checkout       terminalCheckout `json:"checkout"`
}

type checkoutResponse struct {
	Checkout *terminalCheckout `json:"checkout"`
}

type deviceCode struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Code        string `json:"code,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	ProductType string `json:"product_type"`
	LocationID  string `json:"location_id,omitempty"`
	Status      string `json:"status,omitempty"`
	PairBy      string `json:"pair_by,omitempty"`
}

type createDeviceCodeRequest struct {
	IdempotencyKey string     `json:"idempotency_key"`
	DeviceCode     deviceCode `json:"device_code"`
}

type deviceCodeResponse struct {
	DeviceCode *deviceCode `json:"device_code"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

type errorEnvelope struct {
	Errors []apiError `json:"errors"`
}
