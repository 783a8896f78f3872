package indexer

import (
	"context"
	"fmt"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/sortkey"
	"defiScope/internal/storage"
)

// poolRefs resolves the pool references a custom transaction depends on.
// Absence is an IndexerError: the chain only accepts transactions against
// pools that exist.
type poolRefs struct {
	stores *storage.Stores
	op     dftx.Type
}

// byPair returns the pool key of the pool trading a and b, in either order.
func (p poolRefs) byPair(ctx context.Context, txid string, a, b uint32) (string, error) {
	pair, ok, err := p.stores.PoolPairTokens.GetPair(ctx, a, b)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", indexerErrorf(p.op, txid, "pool pair for tokens %d and %d not found", a, b)
	}
	return storage.TokenKey(pair.PoolPairID), nil
}

// latest returns the most recent version of the pool.
func (p poolRefs) latest(ctx context.Context, txid, poolKey string) (model.PoolPairHistory, error) {
	pool, ok, err := p.stores.PoolPairs.Latest(ctx, poolKey)
	if err != nil {
		return model.PoolPairHistory{}, err
	}
	if !ok {
		return model.PoolPairHistory{}, indexerErrorf(p.op, txid, "pool pair %s not found", poolKey)
	}
	return pool, nil
}

// nextVersion copies latest into a new version owned by txid.
func nextVersion(latest model.PoolPairHistory, block model.RawBlock, txid string, txnNo uint32) model.PoolPairHistory {
	next := latest
	next.ID = txKey(latest.PoolPairID, txid)
	next.Sort = sortkey.HeightTxn(block.Height, txnNo)
	next.Block = block.Ref()
	return next
}

// txKey is the id of a record derived from txid within pool.
func txKey(poolKey, txid string) string {
	return fmt.Sprintf("%s-%s", poolKey, txid)
}

func newPoolSwap(poolKey string, block model.RawBlock, txid string, txnNo uint32, swap dftx.PoolSwap) model.PoolSwap {
	return model.PoolSwap{
		ID:          txKey(poolKey, txid),
		PoolPairID:  poolKey,
		Sort:        sortkey.HeightTxn(block.Height, txnNo),
		Txid:        txid,
		TxnNo:       txnNo,
		FromAmount:  swap.FromAmount.StringFixed(8),
		FromTokenID: swap.FromTokenID,
		Block:       block.Ref(),
	}
}
