package cli

import (
	"github.com/rcarvalho-pb/tipbot-go/internal/config"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/square"
)

func newLogger(cfg *config.Config) (*logging.ZapLogger, error) {
	zl, err := logging.Build(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	return logging.NewZapLogger(zl).Named("tipbot"), nil
}

func newSquareClient(cfg *config.Config, logger logging.Logger) *square.Client {
	baseURL := square.ProductionURL
	if cfg.Square.Sandbox() {
		baseURL = square.SandboxURL
	}
	return square.NewClient(square.Config{
		BaseURL:     baseURL,
		AccessToken: cfg.Square.AccessToken,
		APIVersion:  cfg.Square.APIVersion,
		LocationID:  cfg.Square.LocationID,
		Timeout:     cfg.Gateway.Timeout,
	}, logger)
}
