package indexer

import (
	"context"
	"encoding/hex"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// NewUpdatePoolPair appends a pool version carrying the updated fields.
func NewUpdatePoolPair(stores *storage.Stores) Indexer {
	return Typed[dftx.UpdatePoolPair](dftx.TypeUpdatePoolPair, &updatePoolPairHandler{
		stores: stores,
		refs:   poolRefs{stores: stores, op: dftx.TypeUpdatePoolPair},
	})
}

type updatePoolPairHandler struct {
	stores *storage.Stores
	refs   poolRefs
}

func (h *updatePoolPairHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.UpdatePoolPair]) error {
	payload := entry.Payload
	txid := entry.Txn.Txid
	poolKey := storage.TokenKey(payload.PoolID)

	latest, err := h.refs.latest(ctx, txid, poolKey)
	if err != nil {
		return err
	}

	next := nextVersion(latest, block, txid, entry.TxnNo)
	next.Status = payload.Status
	if !payload.Commission.IsNegative() {
		next.Commission = payload.Commission.StringFixed(8)
	}
	if len(payload.OwnerScript) > 0 {
		next.OwnerScript = hex.EncodeToString(payload.OwnerScript)
	}
	if payload.HasCustomRewards {
		next.CustomRewards = formatRewards(payload.CustomRewards)
	}
	return h.stores.PoolPairs.Put(ctx, next)
}

func (h *updatePoolPairHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.UpdatePoolPair]) error {
	txid := entry.Txn.Txid
	poolKey := storage.TokenKey(entry.Payload.PoolID)
	if _, err := h.refs.latest(ctx, txid, poolKey); err != nil {
		return err
	}
	return h.stores.PoolPairs.Delete(ctx, txKey(poolKey, txid))
}
