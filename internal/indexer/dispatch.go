package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
)

// Indexer maintains the derived records of one custom transaction type.
// Invalidate must exactly undo Index for the same block and transactions.
type Indexer interface {
	OpCode() dftx.Type
	Index(ctx context.Context, block model.RawBlock, txs []dftx.Transaction) error
	Invalidate(ctx context.Context, block model.RawBlock, txs []dftx.Transaction) error
}

// Dispatcher decodes a block once and hands each registered indexer the
// transactions of its type, in registration order.
type Dispatcher struct {
	decoder  *dftx.Decoder
	indexers []Indexer
	logger   *zap.Logger
}

func NewDispatcher(decoder *dftx.Decoder, logger *zap.Logger, indexers ...Indexer) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if decoder == nil {
		decoder = dftx.NewDecoder(dftx.WithLogger(logger))
	}
	return &Dispatcher{decoder: decoder, indexers: indexers, logger: logger}
}

// Index applies the block. An error leaves the block uncommitted.
func (d *Dispatcher) Index(ctx context.Context, block model.RawBlock) error {
	return d.dispatch(ctx, block, "index", Indexer.Index)
}

// Invalidate reverts the block, filtering exactly as Index does.
func (d *Dispatcher) Invalidate(ctx context.Context, block model.RawBlock) error {
	return d.dispatch(ctx, block, "invalidate", Indexer.Invalidate)
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	block model.RawBlock,
	action string,
	apply func(Indexer, context.Context, model.RawBlock, []dftx.Transaction) error,
) error {
	txs := d.decoder.Decode(block)
	if len(txs) == 0 {
		return nil
	}
	for _, indexer := range d.indexers {
		subset := filterType(txs, indexer.OpCode())
		if len(subset) == 0 {
			continue
		}
		if err := apply(indexer, ctx, block, subset); err != nil {
			return fmt.Errorf("%s %s at %d: %w", action, indexer.OpCode(), block.Height, err)
		}
		d.logger.Debug("custom transactions applied",
			zap.String("action", action),
			zap.Stringer("type", indexer.OpCode()),
			zap.Int("count", len(subset)),
			zap.Uint32("height", block.Height),
		)
	}
	return nil
}

func filterType(txs []dftx.Transaction, t dftx.Type) []dftx.Transaction {
	var out []dftx.Transaction
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}
