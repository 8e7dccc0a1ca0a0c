package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jguan/hostmon/pkg/config"
	"github.com/jguan/hostmon/pkg/infra/broker"
	"github.com/jguan/hostmon/pkg/infra/logger"
	"github.com/jguan/hostmon/pkg/infra/metrics"
)

var (
	cliVersion   = "dev"
	cliBuildDate = "unknown"
	cliGitCommit = "unknown"
)

type RootCommand struct {
	cmd       *cobra.Command
	viper     *viper.Viper
	cfg       *config.Config
	opts      *OutputOptions
	formatStr string

	// dialer and collector replace the AMQP dialer and gopsutil sampler
	// when set.
	dialer    broker.Dialer
	collector metrics.Collector
}

func NewRootCommand() *RootCommand {
	root := &RootCommand{
		viper: viper.New(),
		opts:  NewOutputOptions(),
	}

	cmd := &cobra.Command{
		Use:   "hostmon",
		Short: "hostmon - host metrics publisher",
		Long: `hostmon samples host metrics (CPU load, memory, uptime and host
identity) on a fixed interval and publishes each snapshot as JSON to a
RabbitMQ queue, retrying while the broker is unreachable.`,
		PersistentPreRunE: root.persistentPreRunE,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVarP(&root.formatStr, "output", "o", "table", "Output format (table, json, yaml)")
	pflags.BoolVarP(&root.opts.Quiet, "quiet", "q", false, "Suppress output")
	pflags.String("config", "", "Config file path (TOML)")
	pflags.String("log-level", "", "Log level (debug, info, warn, error); overrides config")

	_ = root.viper.BindPFlag("output", pflags.Lookup("output"))
	_ = root.viper.BindPFlag("quiet", pflags.Lookup("quiet"))
	_ = root.viper.BindPFlag("config", pflags.Lookup("config"))
	_ = root.viper.BindPFlag("log-level", pflags.Lookup("log-level"))
	root.viper.SetEnvPrefix("HOSTMON")
	_ = root.viper.BindEnv("config", "HOSTMON_CONFIG")

	root.cmd = cmd

	root.addSubCommands()

	return root
}

func (r *RootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(r.viper.GetString("output"))
	if err != nil {
		return err
	}
	r.opts.Format = format
	r.opts.Quiet = r.viper.GetBool("quiet")

	cfg, err := config.Load(r.viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level := r.viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	r.cfg = cfg

	logger.Reset()
	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: r.opts.ErrWriter,
	})

	return nil
}

func (r *RootCommand) addSubCommands() {
	r.cmd.AddCommand(NewVersionCommand(r))
	r.cmd.AddCommand(NewRunCommand(r))
	r.cmd.AddCommand(NewSampleCommand(r))
	r.cmd.AddCommand(NewHistoryCommand(r))
	r.cmd.AddCommand(NewConfigCommand(r))
}

func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

func (r *RootCommand) Config() *config.Config {
	return r.cfg
}

func (r *RootCommand) OutputOptions() *OutputOptions {
	return r.opts
}

func (r *RootCommand) SetOutputWriter(w io.Writer) {
	r.opts.Writer = w
	r.cmd.SetOut(w)
}

func (r *RootCommand) SetErrorWriter(w io.Writer) {
	r.opts.ErrWriter = w
	r.cmd.SetErr(w)
}

func (r *RootCommand) Execute() error {
	return r.cmd.Execute()
}

func (r *RootCommand) ExecuteContext(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

func Execute() {
	root := NewRootCommand()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(err, root.OutputOptions())
		cancel()
		os.Exit(1)
	}
}

func SetVersion(version, buildDate, gitCommit string) {
	cliVersion = version
	cliBuildDate = buildDate
	cliGitCommit = gitCommit
}

func GetVersion() string {
	return cliVersion
}

func GetBuildDate() string {
	return cliBuildDate
}

func GetGitCommit() string {
	return cliGitCommit
}
