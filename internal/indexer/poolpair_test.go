package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"defiScope/internal/dftx"
	"defiScope/internal/dftx/dftxtest"
)

func TestCreatePoolPair(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)
	seedDEX(t, d)

	btc, ok, err := stores.Tokens.GetToken(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "BTC", btc.Symbol)
	require.Equal(t, "tBTC", btc.Creation.Txid)

	lp, ok, err := stores.Tokens.GetToken(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, lp.IsLPS)
	require.Equal(t, "ETH-DFI", lp.Symbol)
	require.Equal(t, "Ether-Default Defi token", lp.Name)

	pool, ok, err := stores.PoolPairs.Latest(ctx, "3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3-pBTC", pool.ID)
	require.Equal(t, "BTC-DFI", pool.PairSymbol)
	require.Equal(t, "0.00200000", pool.Commission)
	require.Equal(t, uint32(1), pool.TokenA.ID)
	require.Equal(t, "DFI", pool.TokenB.Symbol)
	require.Equal(t, uint32(2), pool.Creation.Height)

	pair, ok, err := stores.PoolPairTokens.GetPair(ctx, 0, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(4), pair.PoolPairID)
}

func TestCreatePoolPairUnknownTokenIsIndexerError(t *testing.T) {
	_, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)

	block := newBlock(1, "h0", dftxtest.Tx(t, "p", byte(dftx.TypeCreatePoolPair), dftxtest.CreatePoolPair(7, 0, "0", "")))
	require.ErrorIs(t, d.Index(context.Background(), block), ErrIndexer)
}

func TestUpdatePoolPairAppendsVersion(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)
	seedDEX(t, d)

	block := newBlock(3, "h2",
		dftxtest.Tx(t, "u1", byte(dftx.TypeUpdatePoolPair), dftxtest.UpdatePoolPair(3, false, "0.005")),
		dftxtest.Tx(t, "u2", byte(dftx.TypeUpdatePoolPair), dftxtest.UpdatePoolPair(3, true, "-0.00000001")),
	)
	require.NoError(t, d.Index(ctx, block))

	latest, ok, err := stores.PoolPairs.Latest(ctx, "3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3-u2", latest.ID)
	require.True(t, latest.Status)
	require.Equal(t, "0.00500000", latest.Commission)
	require.Equal(t, "pBTC", latest.Creation.Txid)

	require.NoError(t, d.Invalidate(ctx, block))
	latest, _, err = stores.PoolPairs.Latest(ctx, "3")
	require.NoError(t, err)
	require.Equal(t, "3-pBTC", latest.ID)
}

func TestUpdateUnknownPoolIsIndexerError(t *testing.T) {
	_, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)

	block := newBlock(1, "h0", dftxtest.Tx(t, "u", byte(dftx.TypeUpdatePoolPair), dftxtest.UpdatePoolPair(3, true, "0.1")))
	require.ErrorIs(t, d.Index(context.Background(), block), ErrIndexer)
	require.ErrorIs(t, d.Invalidate(context.Background(), block), ErrIndexer)
}

func TestInvalidateCreateAndSwapInOneBlockIsIndexerError(t *testing.T) {
	ctx := context.Background()
	_, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)
	blocks := dexBlocks(t)
	require.NoError(t, d.Index(ctx, blocks[0]))

	block := newBlock(2, blocks[0].Hash,
		dftxtest.Tx(t, "pBTC", byte(dftx.TypeCreatePoolPair), dftxtest.CreatePoolPair(1, 0, "0.002", "")),
		dftxtest.Tx(t, "s1", byte(dftx.TypePoolSwap), dftxtest.PoolSwap(1, "1", 0)),
	)
	require.NoError(t, d.Index(ctx, block))

	// Pools are reverted before the swaps that reference them.
	require.ErrorIs(t, d.Invalidate(ctx, block), ErrIndexer)
}
