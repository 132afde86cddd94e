package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/pairing"
	"github.com/rcarvalho-pb/tipbot-go/internal/config"
)

func newPairingService(configPath string) (*pairing.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := &pairing.Service{
		Gateway:    newSquareClient(cfg, logger.Named("square")),
		Logger:     logger.Named("pairing"),
		DeviceName: cfg.Pairing.Name,
	}
	return svc, func() { _ = logger.Zap().Sync() }, nil
}

func newPairCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pair",
		Short: "Create a device code to pair a Square Terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := newPairingService(*configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.Pair(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"device_code_id": res.DeviceCodeID,
				"pairing_code":   res.Code,
				"status":         res.Status,
				"expires_at":     res.PairBy,
				"instructions":   res.Instructions,
			})
		},
	}
}

func newDeviceStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "device-status <device_code_id>",
		Short: "Show the pairing status of a device code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := newPairingService(*configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"status":    res.Status,
				"device_id": res.DeviceID,
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
