package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"defiScope/internal/chain"
	"defiScope/internal/config"
	"defiScope/internal/dftx"
	"defiScope/internal/indexer"
	"defiScope/internal/metrics"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "DeFiChain custom transaction indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index blocks into the derived store and follow the chain tip",
		RunE:  runIndexer,
	}

	addRPCFlags(runCmd)
	addStoreFlags(runCmd)
	runCmd.Flags().Uint32("start-height", 0, "first height to index when the store is empty")
	runCmd.Flags().Uint32("stop-height", 0, "stop after indexing this height, 0 follows the tip")
	runCmd.Flags().Duration("poll-interval", 30*time.Second, "wait between polls once caught up")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts per rpc call")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9100)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode custom transactions in a height range into JSONL",
		RunE:  runDecode,
	}

	addRPCFlags(decodeCmd)
	decodeCmd.Flags().Uint32("from", 0, "start height (inclusive)")
	decodeCmd.Flags().Uint32("to", 0, "end height (inclusive), 0 means latest")
	decodeCmd.Flags().Uint32("batch-size", 100, "blocks fetched per batch")
	decodeCmd.Flags().Int("concurrency", 4, "concurrent block requests per batch")
	decodeCmd.Flags().StringSlice("types", nil, "custom transaction types to keep (names or opcodes, comma-separated)")
	decodeCmd.Flags().String("out", "./data/dftx.jsonl", "output decoded transactions JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Print liquidity, volume and APR for pool pairs",
		RunE:  runPool,
	}

	addRPCFlags(poolCmd)
	addStoreFlags(poolCmd)
	poolCmd.Flags().StringSlice("pool", nil, "pool pair ids (comma-separated)")
	poolCmd.Flags().String("out", "", "output JSONL path, stdout when empty")
	poolCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(poolCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRPCFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "DeFiChain node RPC URL")
	cmd.Flags().String("rpc-user", "", "RPC basic auth user")
	cmd.Flags().String("rpc-password", "", "RPC basic auth password")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", config.StoreLevelDB, "derived store backend (leveldb, memory, postgres)")
	cmd.Flags().String("data-dir", "./data", "leveldb data directory")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := dialChain(ctx, cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	stores, closeStore, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	decoder := dftx.NewDecoder(dftx.WithLogger(logger), dftx.WithMetrics(m))
	dispatcher := indexer.NewDispatcher(decoder, logger, indexer.Default(stores)...)

	runner := indexer.NewRunner(indexer.RunConfig{
		StartHeight:  cfg.StartHeight,
		StopHeight:   cfg.StopHeight,
		PollInterval: cfg.PollInterval,
		Retry: indexer.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
		},
	}, chainClient, dispatcher, stores.Blocks, logger, m)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPC.URL),
		zap.String("store", cfg.Store.Backend),
		zap.String("data_dir", cfg.Store.DataDir),
		zap.String("pg_dsn", redactDSN(cfg.Store.PGDSN)),
		zap.Uint32("start_height", cfg.StartHeight),
		zap.Uint32("stop_height", cfg.StopHeight),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("indexer stopped")
		return nil
	}
	return err
}

func dialChain(ctx context.Context, cfg config.RPC) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, chain.Config{
		URL:      cfg.URL,
		User:     cfg.User,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
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
