package indexer

import (
	"context"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// NewCompositeSwap records a composite swap once per pool on its path. Without
// an explicit path it behaves like a pool swap.
func NewCompositeSwap(stores *storage.Stores) Indexer {
	return Typed[dftx.CompositeSwap](dftx.TypeCompositeSwap, &compositeSwapHandler{
		stores: stores,
		refs:   poolRefs{stores: stores, op: dftx.TypeCompositeSwap},
	})
}

type compositeSwapHandler struct {
	stores *storage.Stores
	refs   poolRefs
}

func (h *compositeSwapHandler) resolve(ctx context.Context, txid string, swap dftx.CompositeSwap) ([]string, error) {
	var keys []string
	if len(swap.Pools) == 0 {
		key, err := h.refs.byPair(ctx, txid, swap.PoolSwap.FromTokenID, swap.PoolSwap.ToTokenID)
		if err != nil {
			return nil, err
		}
		keys = []string{key}
	} else {
		for _, id := range swap.Pools {
			keys = append(keys, storage.TokenKey(id))
		}
	}
	for _, key := range keys {
		if _, err := h.refs.latest(ctx, txid, key); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (h *compositeSwapHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.CompositeSwap]) error {
	keys, err := h.resolve(ctx, entry.Txn.Txid, entry.Payload)
	if err != nil {
		return err
	}
	for _, key := range keys {
		swap := newPoolSwap(key, block, entry.Txn.Txid, entry.TxnNo, entry.Payload.PoolSwap)
		if err := h.stores.PoolSwaps.Put(ctx, swap); err != nil {
			return err
		}
	}
	return nil
}

func (h *compositeSwapHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.CompositeSwap]) error {
	keys, err := h.resolve(ctx, entry.Txn.Txid, entry.Payload)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := h.stores.PoolSwaps.Delete(ctx, txKey(key, entry.Txn.Txid)); err != nil {
			return err
		}
	}
	return nil
}
