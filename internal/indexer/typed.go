package indexer

import (
	"context"

	"defiScope/internal/dftx"
	"defiScope/internal/model"
)

// Entry is one decoded transaction with its typed payload.
type Entry[T any] struct {
	Txn     model.RawTransaction
	TxnNo   uint32
	Payload T
}

// Handler indexes a single custom transaction type one entry at a time.
type Handler[T any] interface {
	IndexTransaction(ctx context.Context, block model.RawBlock, entry Entry[T]) error
	InvalidateTransaction(ctx context.Context, block model.RawBlock, entry Entry[T]) error
}

// Typed adapts a Handler to the Indexer interface.
func Typed[T any](op dftx.Type, handler Handler[T]) Indexer {
	return &typed[T]{op: op, handler: handler}
}

type typed[T any] struct {
	op      dftx.Type
	handler Handler[T]
}

func (t *typed[T]) OpCode() dftx.Type {
	return t.op
}

func (t *typed[T]) Index(ctx context.Context, block model.RawBlock, txs []dftx.Transaction) error {
	return t.each(txs, func(entry Entry[T]) error {
		return t.handler.IndexTransaction(ctx, block, entry)
	})
}

func (t *typed[T]) Invalidate(ctx context.Context, block model.RawBlock, txs []dftx.Transaction) error {
	return t.each(txs, func(entry Entry[T]) error {
		return t.handler.InvalidateTransaction(ctx, block, entry)
	})
}

func (t *typed[T]) each(txs []dftx.Transaction, fn func(Entry[T]) error) error {
	for _, tx := range txs {
		payload, ok := tx.Payload.(T)
		if !ok {
			return indexerErrorf(t.op, tx.Txn.Txid, "unexpected payload %T", tx.Payload)
		}
		if err := fn(Entry[T]{Txn: tx.Txn, TxnNo: tx.TxnNo, Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}
