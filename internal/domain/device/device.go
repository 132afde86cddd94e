package device

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const ProductTerminalAPI = "TERMINAL_API"

var ErrUnknownDeviceCode = errors.New("unknown device code")

type PairingCode struct {
	ID       string
	Code     string
	Name     string
	Status   string
	DeviceID string
	PairBy   time.Time
}

type PairingGateway interface {
	CreateDeviceCode(ctx context.Context, idempotencyKey, name string) (*PairingCode, error)
	GetDeviceCode(ctx context.Context, id string) (*PairingCode, error)
}
