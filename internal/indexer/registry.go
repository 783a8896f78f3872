package indexer

import "defiScope/internal/storage"

// Default returns the indexers in the order the chain's state depends on:
// tokens before pools, pool changes before swaps. Invalidate walks the same
// order, so a block that creates a pool and swaps in it cannot be reverted.
func Default(stores *storage.Stores) []Indexer {
	return []Indexer{
		NewCreateToken(stores),
		NewCreatePoolPair(stores),
		NewUpdatePoolPair(stores),
		NewPoolAddLiquidity(stores),
		NewPoolRemoveLiquidity(stores),
		NewPoolSwap(stores),
		NewCompositeSwap(stores),
	}
}
