package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"defiScope/internal/dftx"
	"defiScope/internal/dftx/dftxtest"
	"defiScope/internal/model"
	"defiScope/internal/storage"
	"defiScope/internal/storage/kv"
)

func TestInvalidateRestoresState(t *testing.T) {
	ctx := context.Background()
	store, stores := newTestStores(t)
	d := NewDispatcher(nil, nil, Default(stores)...)

	blocks := dexBlocks(t)
	empty := dump(t, store)
	if err := d.Index(ctx, blocks[0]); err != nil {
		t.Fatalf("index b1: %v", err)
	}
	afterTokens := dump(t, store)
	if err := d.Index(ctx, blocks[1]); err != nil {
		t.Fatalf("index b2: %v", err)
	}
	afterPools := dump(t, store)

	b3 := newBlock(3, blocks[1].Hash,
		dftxtest.Tx(t, "s1", byte(dftx.TypePoolSwap), dftxtest.PoolSwap(0, "1.25", 1)),
		dftxtest.Tx(t, "u1", byte(dftx.TypeUpdatePoolPair), dftxtest.UpdatePoolPair(4, true, "0.003")),
		dftxtest.Tx(t, "c1", byte(dftx.TypeCompositeSwap), dftxtest.CompositeSwap(1, "0.1", 2, 3, 4)),
		dftxtest.Tx(t, "s2", byte(dftx.TypePoolSwap), dftxtest.PoolSwap(2, "3", 0)),
		dftxtest.Tx(t, "l1", byte(dftx.TypePoolAddLiquidity), dftxtest.PoolAddLiquidity(1, "2", 0, "200")),
		dftxtest.Tx(t, "r1", byte(dftx.TypePoolRemoveLiquidity), dftxtest.PoolRemoveLiquidity(3, "4")),
	)
	if err := d.Index(ctx, b3); err != nil {
		t.Fatalf("index b3: %v", err)
	}
	if diff := cmp.Diff(afterPools, dump(t, store)); diff == "" {
		t.Fatalf("indexing b3 changed nothing")
	}

	steps := []struct {
		block model.RawBlock
		want  map[string]string
	}{
		{b3, afterPools},
		{blocks[1], afterTokens},
		{blocks[0], empty},
	}
	for _, step := range steps {
		if err := d.Invalidate(ctx, step.block); err != nil {
			t.Fatalf("invalidate %d: %v", step.block.Height, err)
		}
		if diff := cmp.Diff(step.want, dump(t, store)); diff != "" {
			t.Fatalf("state after invalidating %d mismatch (-want +got):\n%s", step.block.Height, diff)
		}
	}
}

func TestInvalidateRestoresStateProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := kv.NewMemory()
		defer store.Close()
		stores := storage.NewStores(store)
		d := NewDispatcher(nil, nil, Default(stores)...)
		blocks := seedDEX(t, d)
		seeded := seedLiquidity(t, d, blocks[1])
		before := dump(t, store)

		n := rapid.IntRange(1, 12).Draw(rt, "txs")
		txs := make([]model.RawTransaction, 0, n)
		for i := 0; i < n; i++ {
			txid := fmt.Sprintf("tx%d", i)
			token := rapid.SampledFrom([]uint32{1, 2}).Draw(rt, "token")
			sats := rapid.Int64Range(100, 1_000_000_000).Draw(rt, "sats")
			amount := satsString(sats)
			switch rapid.IntRange(0, 4).Draw(rt, "kind") {
			case 0:
				txs = append(txs, dftxtest.Tx(t, txid, byte(dftx.TypePoolSwap), dftxtest.PoolSwap(token, amount, 0)))
			case 1:
				txs = append(txs, dftxtest.Tx(t, txid, byte(dftx.TypeCompositeSwap), dftxtest.CompositeSwap(token, amount, 0, token+2)))
			case 2:
				status := rapid.Bool().Draw(rt, "status")
				txs = append(txs, dftxtest.Tx(t, txid, byte(dftx.TypeUpdatePoolPair), dftxtest.UpdatePoolPair(token+2, status, "0.001")))
			case 3:
				dfi := satsString(rapid.Int64Range(100, 1_000_000_000).Draw(rt, "dfi"))
				txs = append(txs, dftxtest.Tx(t, txid, byte(dftx.TypePoolAddLiquidity), dftxtest.PoolAddLiquidity(token, amount, 0, dfi)))
			default:
				shares := satsString(rapid.Int64Range(1, 1_000_000).Draw(rt, "shares"))
				txs = append(txs, dftxtest.Tx(t, txid, byte(dftx.TypePoolRemoveLiquidity), dftxtest.PoolRemoveLiquidity(token+2, shares)))
			}
		}

		block := newBlock(4, seeded.Hash, txs...)
		if err := d.Index(ctx, block); err != nil {
			rt.Fatalf("index: %v", err)
		}
		if err := d.Invalidate(ctx, block); err != nil {
			rt.Fatalf("invalidate: %v", err)
		}
		if diff := cmp.Diff(before, dump(t, store)); diff != "" {
			rt.Fatalf("state mismatch (-want +got):\n%s", diff)
		}
	})
}

func satsString(sats int64) string {
	return fmt.Sprintf("%d.%08d", sats/100_000_000, sats%100_000_000)
}
