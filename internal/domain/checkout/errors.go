package checkout

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownCheckout = errors.New("unknown checkout")
	ErrInvalidInput    = errors.New("invalid input")
)

// GatewayError is any failure talking to the terminal API: transport,
// authentication or a business rejection reported by the provider.
type GatewayError struct {
	Op         string
	StatusCode int
	Details    []string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %s failed", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// IsRejection reports a 4xx answer: the provider understood the call and
// refused it.
func IsRejection(err error) bool {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.StatusCode >= 400 && gwErr.StatusCode < 500
}

func InvalidInput(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
