package indexer

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"defiScope/internal/model"
)

const (
	zeroAmount = "0.00000000"
	// minimumLiquidity is locked by the first deposit into a pool, in satoshis.
	minimumLiquidity = 1000
	amountExp        = -8
)

// reserves is the pool state liquidity transactions act on, in satoshis.
type reserves struct {
	a, b, total *big.Int
}

func reservesOf(pool model.PoolPairHistory) (reserves, error) {
	a, err := satoshis(pool.ReserveA)
	if err != nil {
		return reserves{}, fmt.Errorf("reserveA: %w", err)
	}
	b, err := satoshis(pool.ReserveB)
	if err != nil {
		return reserves{}, fmt.Errorf("reserveB: %w", err)
	}
	total, err := satoshis(pool.TotalLiquidity)
	if err != nil {
		return reserves{}, fmt.Errorf("totalLiquidity: %w", err)
	}
	return reserves{a: a, b: b, total: total}, nil
}

// add deposits amountA and amountB and returns the shares minted. The first
// deposit mints sqrt(a*b) shares, minus the locked minimum. Later deposits mint
// in proportion to the smaller of the two contributions.
func (r *reserves) add(amountA, amountB *big.Int) (*big.Int, error) {
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return nil, fmt.Errorf("amounts must be positive")
	}
	liquidity := new(big.Int)
	if r.total.Sign() == 0 {
		liquidity.Sqrt(new(big.Int).Mul(amountA, amountB))
		liquidity.Sub(liquidity, big.NewInt(minimumLiquidity))
		if liquidity.Sign() <= 0 {
			return nil, fmt.Errorf("liquidity below minimum")
		}
		r.total = big.NewInt(minimumLiquidity)
	} else {
		if r.a.Sign() == 0 || r.b.Sign() == 0 {
			return nil, fmt.Errorf("pool has shares but no reserves")
		}
		liqA := new(big.Int).Quo(new(big.Int).Mul(amountA, r.total), r.a)
		liqB := new(big.Int).Quo(new(big.Int).Mul(amountB, r.total), r.b)
		liquidity = liqA
		if liqB.Cmp(liqA) < 0 {
			liquidity = liqB
		}
		if liquidity.Sign() == 0 {
			return nil, fmt.Errorf("amounts too low, zero liquidity")
		}
	}
	r.a = new(big.Int).Add(r.a, amountA)
	r.b = new(big.Int).Add(r.b, amountB)
	r.total = new(big.Int).Add(r.total, liquidity)
	return liquidity, nil
}

// remove burns liquidity shares and withdraws the proportional reserves.
func (r *reserves) remove(liquidity *big.Int) error {
	if liquidity.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if liquidity.Cmp(r.total) > 0 {
		return fmt.Errorf("amount %s exceeds removable liquidity %s", formatSatoshis(liquidity), formatSatoshis(r.total))
	}
	amountA := new(big.Int).Quo(new(big.Int).Mul(liquidity, r.a), r.total)
	amountB := new(big.Int).Quo(new(big.Int).Mul(liquidity, r.b), r.total)
	r.a = new(big.Int).Sub(r.a, amountA)
	r.b = new(big.Int).Sub(r.b, amountB)
	r.total = new(big.Int).Sub(r.total, liquidity)
	return nil
}

func (r reserves) applyTo(pool *model.PoolPairHistory) {
	pool.ReserveA = formatSatoshis(r.a)
	pool.ReserveB = formatSatoshis(r.b)
	pool.TotalLiquidity = formatSatoshis(r.total)
}

func satoshis(amount string) (*big.Int, error) {
	if amount == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	return toSatoshis(d), nil
}

func toSatoshis(d decimal.Decimal) *big.Int {
	return d.Shift(-amountExp).BigInt()
}

func formatSatoshis(v *big.Int) string {
	return decimal.NewFromBigInt(v, amountExp).StringFixed(8)
}
