package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"defiScope/internal/config"
	"defiScope/internal/dftx"
	"defiScope/internal/indexer"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// decodedTx is one line of the decode output.
type decodedTx struct {
	Height    uint32 `json:"height"`
	BlockHash string `json:"block_hash"`
	Txid      string `json:"txid"`
	TxnNo     uint32 `json:"txn_no"`
	Vout      uint32 `json:"vout"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	types, err := indexer.ParseTypes(cfg.Types)
	if err != nil {
		return err
	}
	keep := make(map[dftx.Type]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := dialChain(ctx, cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	to := cfg.To
	if to == 0 {
		if to, err = chainClient.GetBlockCount(ctx); err != nil {
			return fmt.Errorf("block count: %w", err)
		}
	}
	ranges, err := indexer.SplitRange(cfg.From, to, cfg.BatchSize)
	if err != nil {
		return err
	}

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	var failed int
	decoder := dftx.NewDecoder(
		dftx.WithLogger(logger),
		dftx.WithErrorHandler(func(e model.DecodeError) {
			failed++
			if err := errWriter.Write(e); err != nil {
				logger.Warn("write decode error failed", zap.Error(err))
			}
		}),
	)

	logger.Info("decode start",
		zap.String("rpc", cfg.RPC.URL),
		zap.Uint32("from", cfg.From),
		zap.Uint32("to", to),
		zap.Int("batches", len(ranges)),
		zap.Strings("types", cfg.Types),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	var blocks, decoded int
	for _, r := range ranges {
		batch, err := indexer.FetchRange(ctx, chainClient, r, cfg.Concurrency)
		if err != nil {
			return fmt.Errorf("fetch %d-%d: %w", r.From, r.To, err)
		}
		for _, block := range batch {
			blocks++
			for _, tx := range decoder.Decode(block) {
				if len(keep) > 0 && !keep[tx.Type] {
					continue
				}
				if err := outWriter.Write(decodedTx{
					Height:    block.Height,
					BlockHash: block.Hash,
					Txid:      tx.Txn.Txid,
					TxnNo:     tx.TxnNo,
					Vout:      tx.Vout,
					Type:      tx.Type.String(),
					Payload:   tx.Payload,
				}); err != nil {
					return err
				}
				decoded++
			}
		}
		logger.Debug("batch decoded", zap.Uint32("from", r.From), zap.Uint32("to", r.To))
	}

	logger.Info("decode done",
		zap.Int("blocks", blocks),
		zap.Int("decoded", decoded),
		zap.Int("failed", failed),
	)
	return nil
}
