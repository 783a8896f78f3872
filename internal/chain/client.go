package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"

	"defiScope/internal/model"
)

// ErrPoolNotFound is returned by GetPoolPair when the node does not know the pool.
var ErrPoolNotFound = errors.New("pool not found")

const poolNotFoundMessage = "Pool not found"

// RPCError is an error reported by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// BlockchainInfo is the subset of getblockchaininfo the indexer reads.
type BlockchainInfo struct {
	Chain         string              `json:"chain"`
	Blocks        uint32              `json:"blocks"`
	Headers       uint32              `json:"headers"`
	BestBlockHash string              `json:"bestblockhash"`
	MedianTime    int64               `json:"mediantime"`
	Softforks     map[string]Softfork `json:"softforks"`
}

// Softfork is a consensus upgrade and its activation height.
type Softfork struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
	Height uint32 `json:"height"`
}

// ForkHeight returns the activation height of fork, or 0 when unknown.
func (i BlockchainInfo) ForkHeight(fork string) uint32 {
	return i.Softforks[fork].Height
}

// Config configures the node connection.
type Config struct {
	URL      string
	User     string
	Password string
}

// Client is a DeFiChain JSON-RPC client.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient dials the node. Credentials are sent as HTTP basic auth.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	var opts []rpc.ClientOption
	if cfg.User != "" || cfg.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.User + ":" + cfg.Password))
		opts = append(opts, rpc.WithHTTPAuth(func(h http.Header) error {
			h.Set("Authorization", "Basic "+token)
			return nil
		}))
	}
	rpcClient, err := rpc.DialOptions(ctx, cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{rpcClient: rpcClient}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetBlockCount returns the height of the node's best chain.
func (c *Client) GetBlockCount(ctx context.Context) (uint32, error) {
	var count uint32
	err := c.call(ctx, &count, "getblockcount")
	return count, err
}

// GetBlockHash returns the hash of the best-chain block at height.
func (c *Client) GetBlockHash(ctx context.Context, height uint32) (string, error) {
	var hash string
	err := c.call(ctx, &hash, "getblockhash", height)
	return hash, err
}

// GetBlock returns the block with hash and its decoded transactions.
func (c *Client) GetBlock(ctx context.Context, hash string) (model.RawBlock, error) {
	var block model.RawBlock
	err := c.call(ctx, &block, "getblock", hash, 2)
	return block, err
}

// GetPoolPair returns the pool identified by id or symbol, keyed by pool id.
func (c *Client) GetPoolPair(ctx context.Context, key string) (map[string]model.PoolPairInfo, error) {
	var pools map[string]model.PoolPairInfo
	if err := c.call(ctx, &pools, "getpoolpair", key, true); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Message == poolNotFoundMessage {
			return nil, fmt.Errorf("%s: %w", key, ErrPoolNotFound)
		}
		return nil, err
	}
	for id, info := range pools {
		info.ID = id
		pools[id] = info
	}
	return pools, nil
}

// GetGov returns the governance variable name as raw JSON values keyed by name.
func (c *Client) GetGov(ctx context.Context, name string) (map[string]json.RawMessage, error) {
	var gov map[string]json.RawMessage
	err := c.call(ctx, &gov, "getgov", name)
	return gov, err
}

// GetBlockchainInfo returns chain state.
func (c *Client) GetBlockchainInfo(ctx context.Context) (BlockchainInfo, error) {
	var info BlockchainInfo
	err := c.call(ctx, &info, "getblockchaininfo")
	return info, err
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if err := c.rpcClient.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, nodeError(err))
	}
	return nil
}

// nodeError normalizes the two ways a node reports a failed call: a JSON-RPC
// error object, or a non-2xx HTTP status carrying that object in the body.
func nodeError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		var body struct {
			Error *RPCError `json:"error"`
		}
		if json.Unmarshal(httpErr.Body, &body) == nil && body.Error != nil {
			return body.Error
		}
	}
	return err
}
