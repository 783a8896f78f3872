package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"defiScope/internal/model"
)

// BlockRange represents an inclusive height range.
type BlockRange struct {
	From uint32
	To   uint32
}

// SplitRange splits a height range into batches of size batchSize.
func SplitRange(from, to, batchSize uint32) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to height must be >= from height")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// FetchRange fetches every block of r with up to concurrency requests in
// flight. Blocks are returned in height order.
func FetchRange(ctx context.Context, source BlockSource, r BlockRange, concurrency int) ([]model.RawBlock, error) {
	blocks := make([]model.RawBlock, int(r.To-r.From)+1)
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range blocks {
		height := r.From + uint32(i)
		g.Go(func() error {
			hash, err := source.GetBlockHash(ctx, height)
			if err != nil {
				return fmt.Errorf("block hash %d: %w", height, err)
			}
			block, err := source.GetBlock(ctx, hash)
			if err != nil {
				return fmt.Errorf("block %s: %w", hash, err)
			}
			blocks[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}
