package storage

import (
	"context"
	"fmt"
	"strconv"

	"defiScope/internal/model"
	"defiScope/internal/sortkey"
)

// Collection names.
const (
	CollectionBlock           = "block"
	CollectionToken           = "token"
	CollectionPoolPairHistory = "pool_pair_history"
	CollectionPoolPairToken   = "pool_pair_token"
	CollectionPoolSwap        = "pool_swap"
)

// First token ids handed out by the chain. Id 0 is DFI.
const (
	firstDATTokenID = 1
	firstDSTTokenID = 128
)

// Stores groups the derived collections.
type Stores struct {
	Blocks         *BlockStore
	Tokens         *TokenStore
	PoolPairs      *Collection[model.PoolPairHistory]
	PoolPairTokens *PoolPairTokenStore
	PoolSwaps      *Collection[model.PoolSwap]
}

func NewStores(backend Backend) *Stores {
	return &Stores{
		Blocks:         &BlockStore{Collection: NewCollection[model.Block](backend, CollectionBlock)},
		Tokens:         &TokenStore{Collection: NewCollection[model.Token](backend, CollectionToken)},
		PoolPairs:      NewCollection[model.PoolPairHistory](backend, CollectionPoolPairHistory),
		PoolPairTokens: &PoolPairTokenStore{Collection: NewCollection[model.PoolPairToken](backend, CollectionPoolPairToken)},
		PoolSwaps:      NewCollection[model.PoolSwap](backend, CollectionPoolSwap),
	}
}

// BlockStore holds committed blocks.
type BlockStore struct {
	*Collection[model.Block]
}

// Highest returns the highest indexed block.
func (s *BlockStore) Highest(ctx context.Context) (model.Block, bool, error) {
	return s.Latest(ctx, model.BlockPartition)
}

// TokenStore holds tokens keyed by their decimal id.
type TokenStore struct {
	*Collection[model.Token]
}

// DFI is created in the genesis block and never by a custom transaction.
var genesisDFI = model.Token{
	ID:       0,
	Key:      "0",
	Symbol:   "DFI",
	Name:     "Default Defi token",
	Decimal:  8,
	IsDAT:    true,
	Limit:    "0.00000000",
	Mintable: false,
	Sort:     sortkey.EncodeUint32(0),
}

// GetToken returns the token with id. DFI resolves even before it is stored.
func (s *TokenStore) GetToken(ctx context.Context, id uint32) (model.Token, bool, error) {
	token, ok, err := s.Get(ctx, TokenKey(id))
	if err != nil || ok || id != 0 {
		return token, ok, err
	}
	return genesisDFI, true, nil
}

// NextID returns the id the chain assigns to the next DAT or non-DAT token.
func (s *TokenStore) NextID(ctx context.Context, dat bool) (uint32, error) {
	partition, first := model.TokenPartitionDST, uint32(firstDSTTokenID)
	if dat {
		partition, first = model.TokenPartitionDAT, uint32(firstDATTokenID)
	}
	latest, ok, err := s.Latest(ctx, partition)
	if err != nil {
		return 0, fmt.Errorf("latest token: %w", err)
	}
	if !ok {
		return first, nil
	}
	return latest.ID + 1, nil
}

// NewToken fills the derived keys of a token.
func NewToken(id uint32, token model.Token) model.Token {
	token.ID = id
	token.Key = TokenKey(id)
	token.Sort = sortkey.EncodeUint32(id)
	return token
}

// TokenKey is the entity id of token id.
func TokenKey(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// PoolPairTokenStore maps token pairs to pools.
type PoolPairTokenStore struct {
	*Collection[model.PoolPairToken]
}

// GetPair looks up the pool for a token pair regardless of argument order.
func (s *PoolPairTokenStore) GetPair(ctx context.Context, a, b uint32) (model.PoolPairToken, bool, error) {
	for _, id := range []string{PairKey(a, b), PairKey(b, a)} {
		pair, ok, err := s.Get(ctx, id)
		if err != nil {
			return model.PoolPairToken{}, false, err
		}
		if ok {
			return pair, true, nil
		}
	}
	return model.PoolPairToken{}, false, nil
}

// PairKey is the entity id of the pair (a, b) in creation order.
func PairKey(a, b uint32) string {
	return fmt.Sprintf("%d-%d", a, b)
}
