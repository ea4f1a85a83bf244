package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tickwatch/internal/chain"
	"tickwatch/internal/config"
	"tickwatch/internal/metrics"
	"tickwatch/internal/monitor"
	"tickwatch/internal/notify"
	"tickwatch/internal/source"
	"tickwatch/internal/storage"
	"tickwatch/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "tickwatch",
		Short:        "Liquidity pool tick range monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", "", "optional .env file loaded before config")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor pools and send tick range alerts",
		RunE:  runMonitor,
	}
	addPoolFlags(runCmd.Flags())
	runCmd.Flags().Duration("interval", 10*time.Second, "polling interval per pool")
	runCmd.Flags().String("telegram-token", "", "Telegram bot token")
	runCmd.Flags().String("telegram-chat-id", "", "Telegram chat id")
	runCmd.Flags().Bool("notify", true, "send chat notifications (false logs them only)")
	runCmd.Flags().Int("notify-retries", 5, "notification retry attempts")
	runCmd.Flags().Duration("notify-retry-delay", 5*time.Second, "delay between notification retries")
	runCmd.Flags().Bool("notify-startup", true, "send a message when monitoring of a pool starts")
	runCmd.Flags().String("journal", "", "JSONL journal path for observations and alerts")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for observations and alerts")
	runCmd.Flags().String("metrics-addr", "", "Prometheus listen address, e.g. :9100")
	runCmd.Flags().String("digest-cron", "", "cron spec with seconds field for status digests")
	root.AddCommand(runCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch every configured pool once and print its tick range",
		RunE:  runCheck,
	}
	addPoolFlags(checkCmd.Flags())
	root.AddCommand(checkCmd)

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Classify a tick move offline",
		RunE:  runEval,
	}
	evalCmd.Flags().Int64("previous", 0, "previous tick")
	evalCmd.Flags().Int64("current", 0, "current tick")
	evalCmd.Flags().Int64("spacing", 0, "tick spacing")
	evalCmd.Flags().Int64("threshold", 0, "alert threshold in ticks")
	_ = evalCmd.MarkFlagRequired("current")
	_ = evalCmd.MarkFlagRequired("spacing")
	root.AddCommand(evalCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolFlags(flags *pflag.FlagSet) {
	flags.StringSlice("pool", nil, "pool spec id:threshold[:name] (repeatable)")
	flags.String("lcd", "https://lcd.osmosis.zone", "LCD REST base URL")
	flags.String("rpc", "", "EVM RPC URL for evm pools")
	flags.Duration("request-timeout", 10*time.Second, "per-request fetch timeout")
	flags.Int("fetch-retries", 2, "fetch retry attempts within one poll")
	flags.Duration("fetch-backoff", 300*time.Millisecond, "initial fetch retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return config.Config{}, fmt.Errorf("load env file: %w", err)
		}
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := buildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	sink, closeSink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	var dispatcher *notify.Dispatcher
	if cfg.Notify {
		dispatcher = notify.NewDispatcher(notify.TelegramSender{
			BotToken: cfg.TelegramToken,
			ChatID:   cfg.TelegramChatID,
			HTTP:     &http.Client{Timeout: cfg.RequestTimeout},
		}, cfg.NotifyRetries, cfg.NotifyRetryDelay, logger)
		notifier = dispatcher
	}

	metrics.Serve(ctx, cfg.MetricsAddr, logger)

	runner := monitor.NewRunner(monitor.RunConfig{
		Interval:      cfg.Interval,
		NotifyStartup: cfg.NotifyStartup,
	}, cfg.Pools, src, notifier, sink, logger)

	if cfg.DigestCron != "" {
		digest, err := monitor.NewDigest(ctx, cfg.DigestCron, cfg.Pools, runner.Table(), notifier, logger)
		if err != nil {
			return err
		}
		digest.Start()
		defer digest.Stop()
	}

	logger.Info("monitor start",
		zap.Int("pools", len(cfg.Pools)),
		zap.Duration("interval", cfg.Interval),
		zap.String("lcd", cfg.LCDURL),
		zap.Bool("notify", cfg.Notify),
		zap.String("journal", cfg.Journal),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("digest_cron", cfg.DigestCron),
	)

	err = runner.Run(ctx)
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return err
}

// buildSource names unnamed EVM pools in place through cfg.Pools.
func buildSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (source.Source, func(), error) {
	router := source.NewRouter()
	router.Register(config.SourceLCD, source.NewLCDSource(source.LCDConfig{
		BaseURL:      cfg.LCDURL,
		Timeout:      cfg.RequestTimeout,
		MaxRetries:   cfg.FetchRetries,
		RetryBackoff: cfg.FetchBackoff,
	}, nil, logger))

	closeFn := func() {}
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			chainClient.Close()
			return nil, nil, fmt.Errorf("get chain id: %w", err)
		}
		logger.Info("rpc connected", zap.String("chain_id", chainID.String()))
		evm := source.NewEVMSource(chainClient, cfg.FetchRetries, cfg.FetchBackoff, logger)
		source.ResolvePoolNames(ctx, evm, cfg.Pools, logger)
		router.Register(config.SourceEVM, evm)
		closeFn = chainClient.Close
	}
	return router, closeFn, nil
}

func buildSink(ctx context.Context, cfg config.Config) (storage.Sink, func(), error) {
	var sinks storage.Multi
	closeFn := func() {}

	if cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Journal))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closeFn = store.Close
	}

	if len(sinks) == 0 {
		return storage.Discard{}, closeFn, nil
	}
	return sinks, closeFn, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
