package indexer

import (
	"context"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// NewPoolSwap records every pool swap against the pool trading its token pair.
func NewPoolSwap(stores *storage.Stores) Indexer {
	return Typed[dftx.PoolSwap](dftx.TypePoolSwap, &poolSwapHandler{
		stores: stores,
		refs:   poolRefs{stores: stores, op: dftx.TypePoolSwap},
	})
}

type poolSwapHandler struct {
	stores *storage.Stores
	refs   poolRefs
}

func (h *poolSwapHandler) resolve(ctx context.Context, txid string, swap dftx.PoolSwap) (string, error) {
	poolKey, err := h.refs.byPair(ctx, txid, swap.FromTokenID, swap.ToTokenID)
	if err != nil {
		return "", err
	}
	if _, err := h.refs.latest(ctx, txid, poolKey); err != nil {
		return "", err
	}
	return poolKey, nil
}

func (h *poolSwapHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.PoolSwap]) error {
	poolKey, err := h.resolve(ctx, entry.Txn.Txid, entry.Payload)
	if err != nil {
		return err
	}
	return h.stores.PoolSwaps.Put(ctx, newPoolSwap(poolKey, block, entry.Txn.Txid, entry.TxnNo, entry.Payload))
}

func (h *poolSwapHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.PoolSwap]) error {
	poolKey, err := h.resolve(ctx, entry.Txn.Txid, entry.Payload)
	if err != nil {
		return err
	}
	return h.stores.PoolSwaps.Delete(ctx, txKey(poolKey, entry.Txn.Txid))
}
