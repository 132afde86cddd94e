package payment

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a dollar amount such as "12.50" into cents.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, checkout.InvalidInput("amount is required")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, checkout.InvalidInput("amount %q is not a number", raw)
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, checkout.InvalidInput("amount %q has more than two decimal places", raw)
	}
	if !d.IsPositive() {
		return 0, checkout.InvalidInput("amount must be positive, got %s", raw)
	}

	cents := d.Shift(2)
	if cents.GreaterThan(maxCents) {
		return 0, checkout.InvalidInput("amount %q is too large", raw)
	}
	return cents.IntPart(), nil
}
