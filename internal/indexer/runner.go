package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"defiScope/internal/metrics"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// BlockSource supplies raw blocks from the node.
type BlockSource interface {
	GetBlockCount(ctx context.Context) (uint32, error)
	GetBlockHash(ctx context.Context, height uint32) (string, error)
	GetBlock(ctx context.Context, hash string) (model.RawBlock, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	StartHeight  uint32
	StopHeight   uint32
	PollInterval time.Duration
	Retry        RetryPolicy
}

// Runner follows the chain tip, indexing new blocks and invalidating blocks
// that were reorganized away.
type Runner struct {
	cfg        RunConfig
	source     BlockSource
	dispatcher *Dispatcher
	blocks     *storage.BlockStore
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source BlockSource, dispatcher *Dispatcher, blocks *storage.BlockStore, logger *zap.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		dispatcher: dispatcher,
		blocks:     blocks,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// Run indexes until the context is cancelled, or until StopHeight is indexed
// when it is set.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("block source is nil")
	}
	if r.dispatcher == nil || r.blocks == nil {
		return fmt.Errorf("dispatcher and block store are required")
	}
	poll := r.cfg.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		advanced, err := r.Step(ctx)
		if err != nil {
			return err
		}
		if advanced {
			continue
		}
		done, err := r.reachedStop(ctx)
		if err != nil {
			return err
		}
		if done {
			r.logger.Info("stop height reached", zap.Uint32("stop_height", r.cfg.StopHeight))
			return nil
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Step indexes the next block, or invalidates the local tip when the next
// block does not build on it. It reports false when there is nothing to do.
func (r *Runner) Step(ctx context.Context) (bool, error) {
	tip, hasTip, err := r.blocks.Highest(ctx)
	if err != nil {
		return false, fmt.Errorf("highest block: %w", err)
	}
	next := r.cfg.StartHeight
	if hasTip {
		next = tip.Height + 1
	}
	if r.cfg.StopHeight > 0 && next > r.cfg.StopHeight {
		return false, nil
	}

	count, err := withRetry(ctx, r.cfg.Retry, r.logger, "getblockcount", r.source.GetBlockCount)
	if err != nil {
		return false, fmt.Errorf("block count: %w", err)
	}
	if next > count {
		return false, nil
	}

	block, err := r.fetch(ctx, next)
	if err != nil {
		return false, err
	}
	if hasTip && block.PreviousBlockHash != tip.Hash {
		return true, r.invalidate(ctx, tip)
	}
	return true, r.index(ctx, block)
}

func (r *Runner) reachedStop(ctx context.Context) (bool, error) {
	if r.cfg.StopHeight == 0 {
		return false, nil
	}
	tip, ok, err := r.blocks.Highest(ctx)
	if err != nil {
		return false, fmt.Errorf("highest block: %w", err)
	}
	return ok && tip.Height >= r.cfg.StopHeight, nil
}

func (r *Runner) fetch(ctx context.Context, height uint32) (model.RawBlock, error) {
	hash, err := withRetry(ctx, r.cfg.Retry, r.logger, "getblockhash", func(ctx context.Context) (string, error) {
		return r.source.GetBlockHash(ctx, height)
	})
	if err != nil {
		return model.RawBlock{}, fmt.Errorf("block hash %d: %w", height, err)
	}
	return r.fetchByHash(ctx, hash)
}

func (r *Runner) fetchByHash(ctx context.Context, hash string) (model.RawBlock, error) {
	block, err := withRetry(ctx, r.cfg.Retry, r.logger, "getblock", func(ctx context.Context) (model.RawBlock, error) {
		return r.source.GetBlock(ctx, hash)
	})
	if err != nil {
		return model.RawBlock{}, fmt.Errorf("block %s: %w", hash, err)
	}
	return block, nil
}

func (r *Runner) index(ctx context.Context, block model.RawBlock) error {
	if err := r.dispatcher.Index(ctx, block); err != nil {
		return err
	}
	if err := r.blocks.Put(ctx, buildBlockRecord(block, r.now())); err != nil {
		return err
	}
	r.metrics.BlocksIndexed.Inc()
	r.metrics.IndexedHeight.Set(float64(block.Height))
	r.logger.Info("block indexed", zap.Uint32("height", block.Height), zap.String("hash", block.Hash), zap.Int("txs", len(block.Tx)))
	return nil
}

// invalidate replays the stale tip through the invalidate path. The node
// still serves reorganized blocks by hash.
func (r *Runner) invalidate(ctx context.Context, tip model.Block) error {
	r.logger.Warn("reorganization detected, invalidating tip", zap.Uint32("height", tip.Height), zap.String("hash", tip.Hash))
	block, err := r.fetchByHash(ctx, tip.Hash)
	if err != nil {
		return err
	}
	if err := r.dispatcher.Invalidate(ctx, block); err != nil {
		return err
	}
	if err := r.blocks.Delete(ctx, tip.Hash); err != nil {
		return err
	}
	r.metrics.BlocksInvalidated.Inc()
	if tip.Height > 0 {
		r.metrics.IndexedHeight.Set(float64(tip.Height - 1))
	}
	return nil
}
