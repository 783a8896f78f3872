package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"defiScope/internal/dftx"
	"defiScope/internal/dftx/dftxtest"
	"defiScope/internal/model"
	"defiScope/internal/storage"
	"defiScope/internal/storage/kv"
)

func newTestStores(t *testing.T) (*kv.Store, *storage.Stores) {
	t.Helper()
	store := kv.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return store, storage.NewStores(store)
}

// dump returns every key of the database, for comparing derived state.
func dump(t *testing.T, store *kv.Store) map[string]string {
	t.Helper()
	itr, err := store.DB().Iterator(nil, nil)
	require.NoError(t, err)
	defer itr.Close()

	out := make(map[string]string)
	for ; itr.Valid(); itr.Next() {
		out[string(itr.Key())] = string(itr.Value())
	}
	require.NoError(t, itr.Error())
	return out
}

func newBlock(height uint32, prev string, txs ...model.RawTransaction) model.RawBlock {
	hash := fmt.Sprintf("h%d", height)
	return model.RawBlock{
		Hash:              hash,
		Height:            height,
		Time:              1_600_000_000 + int64(height)*30,
		MedianTime:        1_600_000_000 + int64(height)*30 - 300,
		PreviousBlockHash: prev,
		Tx:                append([]model.RawTransaction{dftxtest.Coinbase("cb" + hash)}, txs...),
	}
}

// dexBlocks creates BTC (id 1) and ETH (id 2) at height 1, then BTC-DFI
// (pool 3) and ETH-DFI (pool 4) at height 2.
func dexBlocks(t *testing.T) []model.RawBlock {
	t.Helper()
	dat := dftx.TokenFlagDAT | dftx.TokenFlagTradeable

	b1 := newBlock(1, "h0",
		dftxtest.Tx(t, "tBTC", byte(dftx.TypeCreateToken), dftxtest.CreateToken("BTC", "Bitcoin", dat)),
		dftxtest.Tx(t, "tETH", byte(dftx.TypeCreateToken), dftxtest.CreateToken("ETH", "Ether", dat)),
	)
	b2 := newBlock(2, b1.Hash,
		dftxtest.Tx(t, "pBTC", byte(dftx.TypeCreatePoolPair), dftxtest.CreatePoolPair(1, 0, "0.002", "BTC-DFI")),
		dftxtest.Tx(t, "pETH", byte(dftx.TypeCreatePoolPair), dftxtest.CreatePoolPair(2, 0, "0.002", "")),
	)
	return []model.RawBlock{b1, b2}
}

// seedDEX indexes dexBlocks.
func seedDEX(t *testing.T, d *Dispatcher) []model.RawBlock {
	t.Helper()
	blocks := dexBlocks(t)
	for _, block := range blocks {
		require.NoError(t, d.Index(context.Background(), block))
	}
	return blocks
}

// seedLiquidity indexes a block at height 3 depositing 1 token and 100 DFI
// into both pools, leaving each with 10 LP shares.
func seedLiquidity(t *testing.T, d *Dispatcher, prev model.RawBlock) model.RawBlock {
	t.Helper()
	block := newBlock(3, prev.Hash,
		dftxtest.Tx(t, "lBTC", byte(dftx.TypePoolAddLiquidity), dftxtest.PoolAddLiquidity(1, "1", 0, "100")),
		dftxtest.Tx(t, "lETH", byte(dftx.TypePoolAddLiquidity), dftxtest.PoolAddLiquidity(0, "100", 2, "1")),
	)
	require.NoError(t, d.Index(context.Background(), block))
	return block
}
