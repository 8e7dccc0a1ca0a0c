package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jguan/hostmon/pkg/config"
	"github.com/jguan/hostmon/pkg/delivery"
	"github.com/jguan/hostmon/pkg/infra/broker"
	"github.com/jguan/hostmon/pkg/infra/eventbus"
	"github.com/jguan/hostmon/pkg/infra/logger"
	"github.com/jguan/hostmon/pkg/infra/metrics"
	"github.com/jguan/hostmon/pkg/monitor"
)

type runOptions struct {
	once     bool
	interval time.Duration
}

func (o *runOptions) addFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.once, "once", false, "Run a single sample and delivery cycle, then exit")
	fs.DurationVar(&o.interval, "interval", 0, "Wait between cycles (default from config)")
}

func NewRunCommand(root *RootCommand) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the monitoring loop",
		Long: `Start the hostmon service loop.

Every cycle samples the host and publishes the snapshot to the configured
RabbitMQ queue. Broker connection failures are retried with a fixed
backoff; a cycle that still fails is logged and the loop continues until
interrupted. RABBITMQ_USER and RABBITMQ_PASS must be set.`,
		Example: `  # Run with broker settings from the environment
  RABBITMQ_USER=collector RABBITMQ_PASS=secret hostmon run

  # Publish a single snapshot
  hostmon run --once

  # Sample every 30 seconds
  hostmon run --interval 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), root, opts)
		},
	}

	opts.addFlags(cmd.Flags())

	return cmd
}

func runMonitor(ctx context.Context, root *RootCommand, opts *runOptions) error {
	cfg := root.Config()
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	interval := cfg.Monitor.IntervalD
	if opts.interval > 0 {
		interval = opts.interval
	}

	log := logger.Default()

	bus, closeBus := openEventBus(cfg, log)
	defer closeBus()

	if _, err := bus.Subscribe(func(e eventbus.Event) error {
		log.Debug("event", "type", e.Type(), "cycle_id", e.CorrelationID())
		return nil
	}, eventbus.FilterByTypes(delivery.EventTypeExhausted, monitor.EventTypeCycleFailed)); err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	dialer := root.dialer
	if dialer == nil {
		dialer = broker.NewAMQPDialer()
	}

	collector := root.collector
	if collector == nil {
		collector = metrics.NewSampler(metrics.WithUserName(cfg.Sampler.UserName))
	}

	pipeline := delivery.NewPipeline(dialer, brokerParams(cfg),
		delivery.WithQueue(cfg.Broker.Queue),
		delivery.WithMaxAttempts(cfg.Delivery.MaxAttempts),
		delivery.WithRetryBackoff(cfg.Delivery.RetryBackoffD),
		delivery.WithLogger(log),
		delivery.WithEvents(bus),
	)

	loop := monitor.NewLoop(collector, pipeline,
		monitor.WithInterval(interval),
		monitor.WithLogger(log),
		monitor.WithEvents(bus),
	)

	log.Info("hostmon starting",
		"version", cliVersion,
		"broker", brokerParams(cfg)().String(),
		"queue", cfg.Broker.Queue,
		"journal", cfg.Journal.Enabled,
	)

	if opts.once {
		return loop.RunOnce(ctx)
	}
	return loop.Run(ctx)
}

type eventBus interface {
	eventbus.Publisher
	Subscribe(handler eventbus.EventHandler, filters ...eventbus.EventFilter) (eventbus.SubscriptionID, error)
}

// openEventBus returns the journaling bus when the journal is enabled and
// can be opened, and an in-memory bus otherwise.
func openEventBus(cfg *config.Config, log *slog.Logger) (eventBus, func()) {
	busOpts := []eventbus.Option{eventbus.WithLogger(log)}

	if cfg.Journal.Enabled {
		store, err := eventbus.OpenSQLiteEventStore(cfg.Journal.Path)
		if err == nil {
			bus := eventbus.NewPersistentEventBus(store, eventbus.WithBusOptions(busOpts...))
			return bus, func() {
				if err := bus.Close(); err != nil {
					log.Warn("close event journal", "error", err)
				}
				_ = store.Close()
			}
		}
		log.Warn("failed to open event journal, continuing without it", "path", cfg.Journal.Path, "error", err)
	}

	bus := eventbus.NewInMemoryEventBus(busOpts...)
	return bus, func() { _ = bus.Close() }
}

// brokerParams reads connection parameters from cfg on every call.
func brokerParams(cfg *config.Config) delivery.ParamsFunc {
	return func() broker.Params {
		return broker.Params{
			Host:        cfg.Broker.Host,
			Port:        cfg.Broker.Port,
			VHost:       cfg.Broker.VHost,
			User:        cfg.Broker.User,
			Password:    cfg.Broker.Password,
			DialTimeout: cfg.Broker.DialTimeoutD,
		}
	}
}
