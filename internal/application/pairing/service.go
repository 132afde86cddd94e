package pairing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/device"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

const (
	DefaultDeviceName = "TipBot7000 Terminal"

	Instructions = "Enter this pairing code on your Square Terminal to complete pairing. " +
		"After pairing, poll the device status with the device code id to retrieve the device id."
)

type PairResult struct {
	DeviceCodeID string
	Code         string
	Status       string
	PairBy       time.Time
	Instructions string
}

type StatusResult struct {
	Status   string
	DeviceID string
}

// Service pairs a physical terminal with the account. Calls are passed
// through once; the operator retries by hand.
type Service struct {
	Gateway    device.PairingGateway
	Logger     logging.Logger
	DeviceName string
}

func (s *Service) Pair(ctx context.Context) (PairResult, error) {
	name := s.DeviceName
	if name == "" {
		name = DefaultDeviceName
	}

	code, err := s.Gateway.CreateDeviceCode(ctx, uuid.NewString(), name)
	if err != nil {
		s.Logger.Error("failed to create device code", map[string]any{
			"name":  name,
			"error": err,
		})
		return PairResult{}, errors.Wrap(err, "Failed create device code")
	}

	s.Logger.Info("device code created", map[string]any{
		"device-code-id": code.ID,
		"status":         code.Status,
	})

	return PairResult{
		DeviceCodeID: code.ID,
		Code:         code.Code,
		Status:       code.Status,
		PairBy:       code.PairBy,
		Instructions: Instructions,
	}, nil
}

func (s *Service) Status(ctx context.Context, deviceCodeID string) (StatusResult, error) {
	if deviceCodeID == "" {
		return StatusResult{}, checkout.InvalidInput("device code id is required")
	}

	code, err := s.Gateway.GetDeviceCode(ctx, deviceCodeID)
	if err != nil {
		return StatusResult{}, errors.Wrap(err, "Failed get device code")
	}

	return StatusResult{Status: code.Status, DeviceID: code.DeviceID}, nil
}
