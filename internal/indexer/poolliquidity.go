package indexer

import (
	"context"
	"sort"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// NewPoolAddLiquidity appends a pool version with the deposited reserves.
func NewPoolAddLiquidity(stores *storage.Stores) Indexer {
	return Typed[dftx.PoolAddLiquidity](dftx.TypePoolAddLiquidity, &poolAddLiquidityHandler{
		stores: stores,
		refs:   poolRefs{stores: stores, op: dftx.TypePoolAddLiquidity},
	})
}

type poolAddLiquidityHandler struct {
	stores *storage.Stores
	refs   poolRefs
}

// resolve finds the pool the two deposited tokens belong to.
func (h *poolAddLiquidityHandler) resolve(ctx context.Context, txid string, add dftx.PoolAddLiquidity) (model.PoolPairHistory, error) {
	totals := add.Totals()
	if len(totals) != 2 {
		return model.PoolPairHistory{}, indexerErrorf(dftx.TypePoolAddLiquidity, txid, "expected 2 tokens, got %d", len(totals))
	}
	ids := make([]uint32, 0, 2)
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	poolKey, err := h.refs.byPair(ctx, txid, ids[0], ids[1])
	if err != nil {
		return model.PoolPairHistory{}, err
	}
	return h.refs.latest(ctx, txid, poolKey)
}

func (h *poolAddLiquidityHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.PoolAddLiquidity]) error {
	txid := entry.Txn.Txid
	latest, err := h.resolve(ctx, txid, entry.Payload)
	if err != nil {
		return err
	}
	r, err := reservesOf(latest)
	if err != nil {
		return err
	}
	totals := entry.Payload.Totals()
	amountA := toSatoshis(totals[latest.TokenA.ID])
	amountB := toSatoshis(totals[latest.TokenB.ID])
	if _, err := r.add(amountA, amountB); err != nil {
		return indexerErrorf(dftx.TypePoolAddLiquidity, txid, "pool %s: %v", latest.PoolPairID, err)
	}

	next := nextVersion(latest, block, txid, entry.TxnNo)
	r.applyTo(&next)
	return h.stores.PoolPairs.Put(ctx, next)
}

func (h *poolAddLiquidityHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.PoolAddLiquidity]) error {
	txid := entry.Txn.Txid
	latest, err := h.resolve(ctx, txid, entry.Payload)
	if err != nil {
		return err
	}
	return h.stores.PoolPairs.Delete(ctx, txKey(latest.PoolPairID, txid))
}

// NewPoolRemoveLiquidity appends a pool version with the withdrawn reserves.
func NewPoolRemoveLiquidity(stores *storage.Stores) Indexer {
	return Typed[dftx.PoolRemoveLiquidity](dftx.TypePoolRemoveLiquidity, &poolRemoveLiquidityHandler{
		stores: stores,
		refs:   poolRefs{stores: stores, op: dftx.TypePoolRemoveLiquidity},
	})
}

type poolRemoveLiquidityHandler struct {
	stores *storage.Stores
	refs   poolRefs
}

func (h *poolRemoveLiquidityHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.PoolRemoveLiquidity]) error {
	txid := entry.Txn.Txid
	poolKey := storage.TokenKey(entry.Payload.Amount.TokenID)
	latest, err := h.refs.latest(ctx, txid, poolKey)
	if err != nil {
		return err
	}
	r, err := reservesOf(latest)
	if err != nil {
		return err
	}
	if err := r.remove(toSatoshis(entry.Payload.Amount.Amount)); err != nil {
		return indexerErrorf(dftx.TypePoolRemoveLiquidity, txid, "pool %s: %v", poolKey, err)
	}

	next := nextVersion(latest, block, txid, entry.TxnNo)
	r.applyTo(&next)
	return h.stores.PoolPairs.Put(ctx, next)
}

func (h *poolRemoveLiquidityHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.PoolRemoveLiquidity]) error {
	txid := entry.Txn.Txid
	poolKey := storage.TokenKey(entry.Payload.Amount.TokenID)
	if _, err := h.refs.latest(ctx, txid, poolKey); err != nil {
		return err
	}
	return h.stores.PoolPairs.Delete(ctx, txKey(poolKey, txid))
}
