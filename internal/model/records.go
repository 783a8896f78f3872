package model

// BlockPartition is the single partition holding indexed block records.
const BlockPartition = "block"

// Block records a block the indexer has committed.
type Block struct {
	Hash              string `json:"hash"`
	Height            uint32 `json:"height"`
	PreviousBlockHash string `json:"previousHash"`
	Time              int64  `json:"time"`
	MedianTime        int64  `json:"medianTime"`
	TransactionCount  int    `json:"transactionCount"`
	Sort              string `json:"sort"`
	IndexedAt         string `json:"indexedAt"`
}

func (b Block) EntityID() string     { return b.Hash }
func (b Block) PartitionKey() string { return BlockPartition }
func (b Block) SortKey() string      { return b.Sort }

// Token partitions.
const (
	TokenPartitionDAT = "dat"
	TokenPartitionDST = "dst"
)

// Token is a token known to the indexer. LP tokens are created with their pool pair.
type Token struct {
	ID       uint32      `json:"id"`
	Key      string      `json:"key"`
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
	Decimal  uint8       `json:"decimal"`
	IsDAT    bool        `json:"isDAT"`
	IsLPS    bool        `json:"isLPS"`
	Limit    string      `json:"limit"`
	Mintable bool        `json:"mintable"`
	Creation CreationRef `json:"creation"`
	Sort     string      `json:"sort"`
	Block    BlockRef    `json:"block"`
}

func (t Token) EntityID() string { return t.Key }

func (t Token) PartitionKey() string {
	if t.IsDAT {
		return TokenPartitionDAT
	}
	return TokenPartitionDST
}

func (t Token) SortKey() string { return t.Sort }

// PoolPairHistory is one version of a pool pair. Versions are appended, never updated.
//
// Amounts are 8 decimal strings. ReserveA and ReserveB hold the pooled tokens,
// TotalLiquidity the outstanding share tokens including the locked minimum.
type PoolPairHistory struct {
	ID             string          `json:"id"`
	PoolPairID     string          `json:"poolPairId"`
	PairSymbol     string          `json:"pairSymbol"`
	Name           string          `json:"name"`
	TokenA         PoolPairTokenID `json:"tokenA"`
	TokenB         PoolPairTokenID `json:"tokenB"`
	ReserveA       string          `json:"reserveA"`
	ReserveB       string          `json:"reserveB"`
	TotalLiquidity string          `json:"totalLiquidity"`
	Commission     string          `json:"commission"`
	RewardPct      string          `json:"rewardPct"`
	Status         bool            `json:"status"`
	OwnerScript    string          `json:"ownerScript"`
	CustomRewards  []string        `json:"customRewards,omitempty"`
	Creation       CreationRef     `json:"creation"`
	Sort           string          `json:"sort"`
	Block          BlockRef        `json:"block"`
}

func (p PoolPairHistory) EntityID() string     { return p.ID }
func (p PoolPairHistory) PartitionKey() string { return p.PoolPairID }
func (p PoolPairHistory) SortKey() string      { return p.Sort }

// PoolPairTokenID identifies one side of a pool pair.
type PoolPairTokenID struct {
	ID     uint32 `json:"id"`
	Symbol string `json:"symbol"`
}

// CreationRef references the transaction that created a token or pool pair.
type CreationRef struct {
	Txid   string `json:"txid"`
	Height uint32 `json:"height"`
}

// PoolPairTokenPartition is the single partition holding pair mappings.
const PoolPairTokenPartition = "pair"

// PoolPairToken maps a token pair to its pool. Keyed "{tokenA}-{tokenB}" in creation order.
type PoolPairToken struct {
	ID         string   `json:"id"`
	PoolPairID uint32   `json:"poolPairId"`
	Sort       string   `json:"sort"`
	Block      BlockRef `json:"block"`
}

func (p PoolPairToken) EntityID() string     { return p.ID }
func (p PoolPairToken) PartitionKey() string { return PoolPairTokenPartition }
func (p PoolPairToken) SortKey() string      { return p.Sort }

// PoolSwap is a single swap through a pool.
type PoolSwap struct {
	ID          string   `json:"id"`
	PoolPairID  string   `json:"poolPairId"`
	Sort        string   `json:"sort"`
	Txid        string   `json:"txid"`
	TxnNo       uint32   `json:"txno"`
	FromAmount  string   `json:"fromAmount"`
	FromTokenID uint32   `json:"fromTokenId"`
	Block       BlockRef `json:"block"`
}

func (s PoolSwap) EntityID() string     { return s.ID }
func (s PoolSwap) PartitionKey() string { return s.PoolPairID }
func (s PoolSwap) SortKey() string      { return s.Sort }
