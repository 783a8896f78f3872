package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"defiScope/internal/analytics"
	"defiScope/internal/cache"
	"defiScope/internal/config"
	"defiScope/internal/metrics"
	"defiScope/internal/storage"
)

const cacheRequestsMetric = "defiscope_cache_requests_total"

func runPool(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPool(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.PoolIDs) == 0 {
		return fmt.Errorf("at least one pool id is required")
	}

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

	logger.Info("pool stats start",
		zap.String("rpc", cfg.RPC.URL),
		zap.String("store", cfg.Store.Backend),
		zap.String("pg_dsn", redactDSN(cfg.Store.PGDSN)),
		zap.Int("pools", len(cfg.PoolIDs)),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	service := analytics.NewService(chainClient, cache.New(cache.WithMetrics(m)), stores, logger)
	defer logCacheRequests(logger, registry)

	write := json.NewEncoder(os.Stdout).Encode
	if cfg.Out != "" {
		out, err := storage.NewJSONLWriter(cfg.Out, false)
		if err != nil {
			return err
		}
		defer out.Close()
		write = func(v any) error { return out.Write(v) }
	}

	for _, id := range cfg.PoolIDs {
		poolID := strconv.FormatUint(uint64(id), 10)
		stats, err := service.PoolStats(ctx, poolID)
		if err != nil {
			return fmt.Errorf("pool %s: %w", poolID, err)
		}
		if err := write(stats); err != nil {
			return err
		}
		logger.Debug("pool stats", zap.String("pool", poolID), zap.String("symbol", stats.Symbol))
	}
	return nil
}

// logCacheRequests reports how the analytics cache was used during the run.
func logCacheRequests(logger *zap.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		logger.Warn("gather metrics failed", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, 3)
	for _, family := range families {
		if family.GetName() != cacheRequestsMetric {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" {
					fields = append(fields, zap.Float64(label.GetValue(), metric.GetCounter().GetValue()))
				}
			}
		}
	}
	logger.Info("cache requests", fields...)
}
