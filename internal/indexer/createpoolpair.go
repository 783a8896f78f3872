package indexer

import (
	"context"
	"encoding/hex"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/sortkey"
	"defiScope/internal/storage"
)

// NewCreatePoolPair creates the pool's LP token, its first version and the
// token pair mapping.
func NewCreatePoolPair(stores *storage.Stores) Indexer {
	return Typed[dftx.CreatePoolPair](dftx.TypeCreatePoolPair, &createPoolPairHandler{stores: stores})
}

type createPoolPairHandler struct {
	stores *storage.Stores
}

func (h *createPoolPairHandler) token(ctx context.Context, txid string, id uint32) (model.Token, error) {
	token, ok, err := h.stores.Tokens.GetToken(ctx, id)
	if err != nil {
		return model.Token{}, err
	}
	if !ok {
		return model.Token{}, indexerErrorf(dftx.TypeCreatePoolPair, txid, "token %d not found", id)
	}
	return token, nil
}

func (h *createPoolPairHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.CreatePoolPair]) error {
	payload := entry.Payload
	txid := entry.Txn.Txid

	tokenA, err := h.token(ctx, txid, payload.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := h.token(ctx, txid, payload.TokenB)
	if err != nil {
		return err
	}
	poolID, err := h.stores.Tokens.NextID(ctx, true)
	if err != nil {
		return err
	}

	symbol := payload.PairSymbol
	if symbol == "" {
		symbol = tokenA.Symbol + "-" + tokenB.Symbol
	}
	name := tokenA.Name + "-" + tokenB.Name
	creation := model.CreationRef{Txid: txid, Height: block.Height}
	poolKey := storage.TokenKey(poolID)

	lpToken := storage.NewToken(poolID, model.Token{
		Symbol:   symbol,
		Name:     name,
		Decimal:  8,
		IsDAT:    true,
		IsLPS:    true,
		Limit:    zeroAmount,
		Creation: creation,
		Block:    block.Ref(),
	})
	if err := h.stores.Tokens.Put(ctx, lpToken); err != nil {
		return err
	}

	history := model.PoolPairHistory{
		ID:             txKey(poolKey, txid),
		PoolPairID:     poolKey,
		PairSymbol:     symbol,
		Name:           name,
		TokenA:         model.PoolPairTokenID{ID: payload.TokenA, Symbol: tokenA.Symbol},
		TokenB:         model.PoolPairTokenID{ID: payload.TokenB, Symbol: tokenB.Symbol},
		ReserveA:       zeroAmount,
		ReserveB:       zeroAmount,
		TotalLiquidity: zeroAmount,
		Commission:     payload.Commission.StringFixed(8),
		RewardPct:      zeroAmount,
		Status:         payload.Status,
		OwnerScript:    hex.EncodeToString(payload.OwnerScript),
		CustomRewards:  formatRewards(payload.CustomRewards),
		Creation:       creation,
		Sort:           sortkey.HeightTxn(block.Height, entry.TxnNo),
		Block:          block.Ref(),
	}
	if err := h.stores.PoolPairs.Put(ctx, history); err != nil {
		return err
	}

	return h.stores.PoolPairTokens.Put(ctx, model.PoolPairToken{
		ID:         storage.PairKey(payload.TokenA, payload.TokenB),
		PoolPairID: poolID,
		Sort:       sortkey.EncodeUint32(poolID),
		Block:      block.Ref(),
	})
}

func (h *createPoolPairHandler) InvalidateTransaction(ctx context.Context, _ model.RawBlock, entry Entry[dftx.CreatePoolPair]) error {
	txid := entry.Txn.Txid
	pairKey := storage.PairKey(entry.Payload.TokenA, entry.Payload.TokenB)
	pair, ok, err := h.stores.PoolPairTokens.Get(ctx, pairKey)
	if err != nil {
		return err
	}
	if !ok {
		return indexerErrorf(dftx.TypeCreatePoolPair, txid, "pool pair %s not found", pairKey)
	}

	poolKey := storage.TokenKey(pair.PoolPairID)
	if err := h.stores.PoolPairs.Delete(ctx, txKey(poolKey, txid)); err != nil {
		return err
	}
	if err := h.stores.Tokens.Delete(ctx, poolKey); err != nil {
		return err
	}
	return h.stores.PoolPairTokens.Delete(ctx, pairKey)
}

func formatRewards(rewards []dftx.TokenBalance) []string {
	if len(rewards) == 0 {
		return nil
	}
	out := make([]string, 0, len(rewards))
	for _, reward := range rewards {
		out = append(out, reward.String())
	}
	return out
}
