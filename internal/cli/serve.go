package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcarvalho-pb/tipbot-go/internal/application/pairing"
	"github.com/rcarvalho-pb/tipbot-go/internal/application/payment"
	"github.com/rcarvalho-pb/tipbot-go/internal/application/worker"
	"github.com/rcarvalho-pb/tipbot-go/internal/config"
	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/persistence/sqlite"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the resubmission engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Zap().Sync() }()

	db, err := sqlite.Open(cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.RunMigrations(db); err != nil {
		return err
	}

	journal := outbox.NewSQLiteRepository(db)
	recorder := &outbox.Recorder{Repo: journal}

	bus := eventbus.NewInMemoryBus()
	chainEvents := &payment.ChainEventHandler{Logger: logger.Named("journal")}
	for _, t := range []event.Type{event.ChainStarted, event.CheckoutResubmitted, event.ChainFinished, event.CheckoutConfirmed} {
		bus.Subscribe(t, chainEvents.Handle)
	}

	dispatcher := &outbox.Dispatcher{
		Repo:         journal,
		EventBus:     bus,
		Logger:       logger.Named("dispatcher"),
		PollInterval: cfg.Journal.Poll,
		BatchSize:    100,
	}

	counters := &metrics.Counters{}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		counters,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gateway := newSquareClient(cfg, logger.Named("square"))
	ledger := inmemory.NewLedger()
	aborts := inmemory.NewAbortRegistry()
	chains := inmemory.NewChainRepository()

	engineConfig := worker.Config{
		TickInterval:   cfg.Resubmit.Tick,
		TicksPerCycle:  cfg.Resubmit.TicksPerCycle,
		MaxDuration:    cfg.Resubmit.MaxDuration,
		GatewayTimeout: cfg.Gateway.Timeout,
	}
	engine := &worker.Resubmitter{
		Gateway:  gateway,
		Ledger:   ledger,
		Aborts:   aborts,
		Chains:   chains,
		Recorder: recorder,
		Logger:   logger.Named("resubmitter"),
		Metrics:  counters,
		Config:   engineConfig,
		DeviceID: cfg.Square.DeviceID,
		Currency: cfg.Currency,
	}

	payments := &payment.Service{
		Gateway:  gateway,
		Ledger:   ledger,
		Aborts:   aborts,
		Repo:     chains,
		Engine:   engine,
		Recorder: recorder,
		Logger:   logger.Named("payment"),
		Metrics:  counters,
		DeviceID: cfg.Square.DeviceID,
		Currency: cfg.Currency,
	}

	pairingService := &pairing.Service{
		Gateway:    gateway,
		Logger:     logger.Named("pairing"),
		DeviceName: cfg.Pairing.Name,
	}

	handler := &httpapi.Handler{
		Payments: payments,
		Pairing:  pairingService,
		Journal:  journal,
		Logger:   logger.Named("http"),
	}
	router := httpapi.NewRouter(handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := httpapi.NewServer(cfg.HTTP.Addr, router, logger.Named("http"))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the dispatcher outlives the engine so final chain events are delivered
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		dispatcher.Run(dispatchCtx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopDispatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		serverErr := server.Stop(shutdownCtx)
		engineErr := engine.Stop(shutdownCtx)
		if serverErr != nil {
			return errors.Wrap(serverErr, "Failed stop http server")
		}
		return engineErr
	})

	logger.Info("tipbot started", map[string]any{
		"addr":        cfg.HTTP.Addr,
		"sandbox":     cfg.Square.Sandbox(),
		"cycle":       engineConfig.CycleLength().String(),
		"max-watch":   cfg.Resubmit.MaxDuration.String(),
		"device-id":   cfg.Square.DeviceID,
		"journal-dsn": cfg.Journal.DSN,
	})

	if err := g.Wait(); err != nil {
		logger.Error("tipbot stopped", map[string]any{"error": err})
		return err
	}
	logger.Info("tipbot stopped", nil)
	return nil
}
