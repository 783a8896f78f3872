package dftx

import (
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// Token flags as defined by the node.
const (
	TokenFlagMintable  uint8 = 0x01
	TokenFlagTradeable uint8 = 0x02
	TokenFlagDAT       uint8 = 0x04
	TokenFlagLPS       uint8 = 0x08
	TokenFlagFinalized uint8 = 0x10
)

// TokenBalance is an amount of a token.
type TokenBalance struct {
	TokenID uint32
	Amount  decimal.Decimal
}

// String formats the balance the way the node RPC does, e.g. "1.50000000@0".
func (b TokenBalance) String() string {
	return fmt.Sprintf("%s@%d", b.Amount.StringFixed(8), b.TokenID)
}

// PoolSwap swaps FromAmount of FromTokenID into ToTokenID.
type PoolSwap struct {
	FromScript  []byte
	FromTokenID uint32
	FromAmount  decimal.Decimal
	ToScript    []byte
	ToTokenID   uint32
	MaxPrice    decimal.Decimal
}

// CompositeSwap is a PoolSwap routed through an explicit pool path.
type CompositeSwap struct {
	PoolSwap PoolSwap
	Pools    []uint32
}

// CreatePoolPair creates a pool between TokenA and TokenB.
type CreatePoolPair struct {
	TokenA        uint32
	TokenB        uint32
	Commission    decimal.Decimal
	OwnerScript   []byte
	Status        bool
	PairSymbol    string
	CustomRewards []TokenBalance
}

// UpdatePoolPair changes an existing pool. A negative commission and an empty
// owner script leave those fields unchanged; CustomRewards is only applied
// when HasCustomRewards is set.
type UpdatePoolPair struct {
	PoolID           uint32
	Status           bool
	Commission       decimal.Decimal
	OwnerScript      []byte
	HasCustomRewards bool
	CustomRewards    []TokenBalance
}

// ScriptBalances is the balances one script contributes.
type ScriptBalances struct {
	Script   []byte
	Balances []TokenBalance
}

// PoolAddLiquidity moves the From balances into a pool and credits the minted
// pool shares to ShareScript.
type PoolAddLiquidity struct {
	From        []ScriptBalances
	ShareScript []byte
}

// Totals sums the contributed amounts per token.
func (p PoolAddLiquidity) Totals() map[uint32]decimal.Decimal {
	out := make(map[uint32]decimal.Decimal)
	for _, from := range p.From {
		for _, balance := range from.Balances {
			out[balance.TokenID] = out[balance.TokenID].Add(balance.Amount)
		}
	}
	return out
}

// PoolRemoveLiquidity burns Amount of a pool's share token, whose id is the
// pool id, and returns the underlying reserves to FromScript.
type PoolRemoveLiquidity struct {
	FromScript []byte
	Amount     TokenBalance
}

// CreateToken creates a token.
type CreateToken struct {
	Symbol  string
	Name    string
	Decimal uint8
	Limit   decimal.Decimal
	Flags   uint8
}

func (t CreateToken) IsDAT() bool {
	return t.Flags&TokenFlagDAT != 0
}

// Unmapped carries the body of a custom transaction this package does not parse.
type Unmapped struct {
	Hex string
}

func parsePayload(t Type, body []byte) (any, error) {
	r := newReader(body)
	switch t {
	case TypePoolSwap:
		return parsePoolSwap(r)
	case TypeCompositeSwap:
		return parseCompositeSwap(r)
	case TypeCreatePoolPair:
		return parseCreatePoolPair(r)
	case TypeUpdatePoolPair:
		return parseUpdatePoolPair(r)
	case TypeCreateToken:
		return parseCreateToken(r)
	case TypePoolAddLiquidity:
		return parsePoolAddLiquidity(r)
	case TypePoolRemoveLiquidity:
		return parsePoolRemoveLiquidity(r)
	default:
		return Unmapped{Hex: hex.EncodeToString(body)}, nil
	}
}

func parsePoolSwap(r *reader) (PoolSwap, error) {
	var (
		swap PoolSwap
		err  error
	)
	if swap.FromScript, err = r.script("fromScript"); err != nil {
		return PoolSwap{}, err
	}
	if swap.FromTokenID, err = r.tokenID("fromTokenId"); err != nil {
		return PoolSwap{}, err
	}
	if swap.FromAmount, err = r.amount("fromAmount"); err != nil {
		return PoolSwap{}, err
	}
	if swap.ToScript, err = r.script("toScript"); err != nil {
		return PoolSwap{}, err
	}
	if swap.ToTokenID, err = r.tokenID("toTokenId"); err != nil {
		return PoolSwap{}, err
	}
	integer, err := r.int64("maxPrice.integer")
	if err != nil {
		return PoolSwap{}, err
	}
	fraction, err := r.amount("maxPrice.fraction")
	if err != nil {
		return PoolSwap{}, err
	}
	swap.MaxPrice = decimal.NewFromInt(integer).Add(fraction)
	return swap, nil
}

func parseCompositeSwap(r *reader) (CompositeSwap, error) {
	swap, err := parsePoolSwap(r)
	if err != nil {
		return CompositeSwap{}, err
	}
	n, err := r.compactSize("pools", maxListSize)
	if err != nil {
		return CompositeSwap{}, err
	}
	pools := make([]uint32, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := r.tokenID("pools")
		if err != nil {
			return CompositeSwap{}, err
		}
		pools = append(pools, id)
	}
	return CompositeSwap{PoolSwap: swap, Pools: pools}, nil
}

func parseCreatePoolPair(r *reader) (CreatePoolPair, error) {
	var (
		pair CreatePoolPair
		err  error
	)
	if pair.TokenA, err = r.tokenID("tokenA"); err != nil {
		return CreatePoolPair{}, err
	}
	if pair.TokenB, err = r.tokenID("tokenB"); err != nil {
		return CreatePoolPair{}, err
	}
	if pair.Commission, err = r.amount("commission"); err != nil {
		return CreatePoolPair{}, err
	}
	if pair.OwnerScript, err = r.script("ownerAddress"); err != nil {
		return CreatePoolPair{}, err
	}
	if pair.Status, err = r.bool("status"); err != nil {
		return CreatePoolPair{}, err
	}
	if pair.PairSymbol, err = r.string("pairSymbol"); err != nil {
		return CreatePoolPair{}, err
	}
	// Custom rewards were added by a later fork and are optional.
	if r.remaining() > 0 {
		if pair.CustomRewards, err = r.balances("customRewards"); err != nil {
			return CreatePoolPair{}, err
		}
	}
	return pair, nil
}

func parseUpdatePoolPair(r *reader) (UpdatePoolPair, error) {
	var (
		update UpdatePoolPair
		err    error
	)
	if update.PoolID, err = r.tokenID("poolId"); err != nil {
		return UpdatePoolPair{}, err
	}
	if update.Status, err = r.bool("status"); err != nil {
		return UpdatePoolPair{}, err
	}
	if update.Commission, err = r.amount("commission"); err != nil {
		return UpdatePoolPair{}, err
	}
	if update.OwnerScript, err = r.script("ownerAddress"); err != nil {
		return UpdatePoolPair{}, err
	}
	if r.remaining() > 0 {
		update.HasCustomRewards = true
		if update.CustomRewards, err = r.balances("customRewards"); err != nil {
			return UpdatePoolPair{}, err
		}
	}
	return update, nil
}

func parseCreateToken(r *reader) (CreateToken, error) {
	var (
		token CreateToken
		err   error
	)
	if token.Symbol, err = r.string("symbol"); err != nil {
		return CreateToken{}, err
	}
	if token.Name, err = r.string("name"); err != nil {
		return CreateToken{}, err
	}
	if token.Decimal, err = r.uint8("decimal"); err != nil {
		return CreateToken{}, err
	}
	if token.Limit, err = r.amount("limit"); err != nil {
		return CreateToken{}, err
	}
	if token.Flags, err = r.uint8("flags"); err != nil {
		return CreateToken{}, err
	}
	return token, nil
}

func parsePoolAddLiquidity(r *reader) (PoolAddLiquidity, error) {
	n, err := r.compactSize("from", maxListSize)
	if err != nil {
		return PoolAddLiquidity{}, err
	}
	add := PoolAddLiquidity{From: make([]ScriptBalances, 0, n)}
	for i := uint64(0); i < n; i++ {
		script, err := r.script("from.script")
		if err != nil {
			return PoolAddLiquidity{}, err
		}
		balances, err := r.balances("from.balances")
		if err != nil {
			return PoolAddLiquidity{}, err
		}
		add.From = append(add.From, ScriptBalances{Script: script, Balances: balances})
	}
	if add.ShareScript, err = r.script("shareAddress"); err != nil {
		return PoolAddLiquidity{}, err
	}
	return add, nil
}

func parsePoolRemoveLiquidity(r *reader) (PoolRemoveLiquidity, error) {
	var (
		remove PoolRemoveLiquidity
		err    error
	)
	if remove.FromScript, err = r.script("from"); err != nil {
		return PoolRemoveLiquidity{}, err
	}
	if remove.Amount.TokenID, err = r.tokenID("amount.token"); err != nil {
		return PoolRemoveLiquidity{}, err
	}
	if remove.Amount.Amount, err = r.amount("amount"); err != nil {
		return PoolRemoveLiquidity{}, err
	}
	return remove, nil
}
