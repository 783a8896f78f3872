package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// fakeNode answers JSON-RPC calls with handler. A non-nil error is returned
// with HTTP 500, like the node does.
func fakeNode(t *testing.T, handler func(req rpcRequest) (any, *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rpc" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rpcErr := handler(req)
		w.Header().Set("Content-Type", "application/json")
		if rpcErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
			"error":   rpcErr,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Config{URL: srv.URL, User: "rpc", Password: "secret"})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestGetBlock(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		require.Equal(t, "getblock", req.Method)
		require.Equal(t, []any{"h1", float64(2)}, req.Params)
		return map[string]any{
			"hash":              "h1",
			"height":            1,
			"time":              1600000000,
			"mediantime":        1599999000,
			"previousblockhash": "h0",
			"tx": []any{map[string]any{
				"txid": "t1",
				"vout": []any{map[string]any{
					"n":            0,
					"value":        0,
					"scriptPubKey": map[string]any{"asm": "OP_RETURN 44665478", "hex": "6a0444665478"},
				}},
			}},
		}, nil
	})

	block, err := newTestClient(t, srv).GetBlock(context.Background(), "h1")
	require.NoError(t, err)
	require.Equal(t, uint32(1), block.Height)
	require.Equal(t, int64(1599999000), block.MedianTime)
	require.Equal(t, "h0", block.PreviousBlockHash)
	require.Len(t, block.Tx, 1)
	require.Equal(t, "6a0444665478", block.Tx[0].Vout[0].ScriptPubKey.Hex)
}

func TestGetBlockCountAndHash(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		switch req.Method {
		case "getblockcount":
			return 42, nil
		case "getblockhash":
			require.Equal(t, []any{float64(42)}, req.Params)
			return "h42", nil
		}
		return nil, &RPCError{Code: -32601, Message: "Method not found"}
	})
	client := newTestClient(t, srv)

	count, err := client.GetBlockCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(42), count)

	hash, err := client.GetBlockHash(context.Background(), count)
	require.NoError(t, err)
	require.Equal(t, "h42", hash)
}

func TestGetPoolPair(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		require.Equal(t, "getpoolpair", req.Method)
		if req.Params[0] != "DFI-USDT" {
			return nil, &RPCError{Code: -5, Message: "Pool not found"}
		}
		return map[string]any{
			"6": map[string]any{
				"symbol":    "DFI-USDT",
				"idTokenA":  "0",
				"idTokenB":  "3",
				"reserveA":  1000.5,
				"reserveB":  2001,
				"rewardPct": 0.1,
			},
		}, nil
	})
	client := newTestClient(t, srv)

	pools, err := client.GetPoolPair(context.Background(), "DFI-USDT")
	require.NoError(t, err)
	require.Contains(t, pools, "6")
	require.Equal(t, "6", pools["6"].ID)
	require.Equal(t, "1000.5", pools["6"].ReserveA.String())
	require.True(t, pools["6"].RewardPct.Valid)

	_, err = client.GetPoolPair(context.Background(), "USDT-DFI")
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestGetPoolPairOnlyMapsExactNotFound(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		return nil, &RPCError{Code: -32600, Message: "Pool not found in cache, retry later"}
	})

	_, err := newTestClient(t, srv).GetPoolPair(context.Background(), "DFI-USDT")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPoolNotFound)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, -32600, rpcErr.Code)
}

func TestOtherErrorsPropagate(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		return nil, &RPCError{Code: -8, Message: "Block height out of range"}
	})
	client := newTestClient(t, srv)

	_, err := client.GetPoolPair(context.Background(), "DFI-USDT")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrPoolNotFound))

	_, err = client.GetBlockHash(context.Background(), 10)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -8, rpcErr.Code)
}

func TestGetGov(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		require.Equal(t, []any{"LP_DAILY_DFI_REWARD"}, req.Params)
		return map[string]any{"LP_DAILY_DFI_REWARD": 14843.7}, nil
	})

	gov, err := newTestClient(t, srv).GetGov(context.Background(), "LP_DAILY_DFI_REWARD")
	require.NoError(t, err)
	require.JSONEq(t, "14843.7", string(gov["LP_DAILY_DFI_REWARD"]))
}

func TestGetBlockchainInfo(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *RPCError) {
		return map[string]any{
			"chain":  "main",
			"blocks": 1500000,
			"softforks": map[string]any{
				"eunos":           map[string]any{"type": "buried", "active": true, "height": 894000},
				"amk":             map[string]any{"type": "buried", "active": true, "height": 356500},
				"fortcanningpark": map[string]any{"type": "buried", "active": false},
			},
		}, nil
	})

	info, err := newTestClient(t, srv).GetBlockchainInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(1500000), info.Blocks)
	require.Equal(t, uint32(894000), info.ForkHeight("eunos"))
	require.Equal(t, uint32(0), info.ForkHeight("fortcanningpark"))
	require.Equal(t, uint32(0), info.ForkHeight("unknown"))
}
