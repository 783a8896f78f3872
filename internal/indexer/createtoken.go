package indexer

import (
	"context"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
	"defiScope/internal/storage"
)

// NewCreateToken assigns token ids the way the chain does and stores the token.
func NewCreateToken(stores *storage.Stores) Indexer {
	return Typed[dftx.CreateToken](dftx.TypeCreateToken, &createTokenHandler{stores: stores})
}

type createTokenHandler struct {
	stores *storage.Stores
}

func (h *createTokenHandler) IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.CreateToken]) error {
	payload := entry.Payload
	id, err := h.stores.Tokens.NextID(ctx, payload.IsDAT())
	if err != nil {
		return err
	}
	token := storage.NewToken(id, model.Token{
		Symbol:   payload.Symbol,
		Name:     payload.Name,
		Decimal:  payload.Decimal,
		IsDAT:    payload.IsDAT(),
		IsLPS:    payload.Flags&dftx.TokenFlagLPS != 0,
		Limit:    payload.Limit.StringFixed(8),
		Mintable: payload.Flags&dftx.TokenFlagMintable != 0,
		Creation: model.CreationRef{Txid: entry.Txn.Txid, Height: block.Height},
		Block:    block.Ref(),
	})
	return h.stores.Tokens.Put(ctx, token)
}

// InvalidateTransaction finds the token by its creation transaction. Tokens
// created in the block being invalidated are the newest of their partition.
func (h *createTokenHandler) InvalidateTransaction(ctx context.Context, block model.RawBlock, entry Entry[dftx.CreateToken]) error {
	partition := model.TokenPartitionDST
	if entry.Payload.IsDAT() {
		partition = model.TokenPartitionDAT
	}
	tokens, err := h.stores.Tokens.Query(ctx, partition, storage.Query{})
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if token.Creation.Txid == entry.Txn.Txid {
			return h.stores.Tokens.Delete(ctx, token.Key)
		}
		if token.Creation.Height < block.Height {
			break
		}
	}
	return indexerErrorf(dftx.TypeCreateToken, entry.Txn.Txid, "token created at %d not found", block.Height)
}
