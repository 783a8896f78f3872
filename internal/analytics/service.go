// Package analytics derives DEX prices, volumes, liquidity and yields from
// indexed records and live chain state.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"defiScope/internal/cache"
	"defiScope/internal/chain"
	"defiScope/internal/model"
	"defiScope/internal/sortkey"
	"defiScope/internal/storage"
)

// BlocksPerDay is one day of blocks at the 30 second target spacing.
const BlocksPerDay = 24 * 60 * 60 / 30

const (
	keyUSDPerDFI         = "USD_PER_DFI"
	keyDailyDFIReward    = "LP_DAILY_DFI_REWARD"
	keyLoanTokenSplits   = "LP_LOAN_TOKEN_SPLITS"
	keyLoanTokenEmission = "LP_LOAN_TOKEN_EMISSION"

	ttlUSDPerDFI         = 180 * time.Second
	ttlPrice             = time.Hour
	ttlVolume            = time.Hour
	ttlDailyDFIReward    = time.Hour
	ttlLoanTokenSplits   = 10 * time.Minute
	ttlLoanTokenEmission = time.Hour

	dfiSymbol  = "DFI"
	dusdSymbol = "DUSD"
	eunosFork  = "eunos"
	loanShare  = "0.2468"
)

var (
	stableSymbols = map[string]bool{"DUSD": true, "USDT": true, "USDC": true}
	daysPerYear   = decimal.NewFromInt(365)
	blocksPerYear = decimal.NewFromInt(BlocksPerDay).Mul(daysPerYear)
	two           = decimal.NewFromInt(2)
)

// ErrTokenNotFound is returned when a price is requested for an unknown token.
var ErrTokenNotFound = errors.New("token not found")

// ChainQuery is the live chain state the service reads.
type ChainQuery interface {
	GetPoolPair(ctx context.Context, key string) (map[string]model.PoolPairInfo, error)
	GetGov(ctx context.Context, name string) (map[string]json.RawMessage, error)
	GetBlockchainInfo(ctx context.Context) (chain.BlockchainInfo, error)
}

// Service answers analytics queries. Results that are expensive to compute
// are cached; a false ok means the value could not be resolved.
type Service struct {
	chain  ChainQuery
	cache  *cache.Cache
	stores *storage.Stores
	logger *zap.Logger
}

func NewService(chainQuery ChainQuery, c *cache.Cache, stores *storage.Stores, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New()
	}
	return &Service{chain: chainQuery, cache: c, stores: stores, logger: logger}
}

// PoolPair returns the pool trading a and b, trying both symbol orders.
func (s *Service) PoolPair(ctx context.Context, a, b string) (model.PoolPairInfo, bool, error) {
	for _, key := range []string{a + "-" + b, b + "-" + a} {
		pools, err := s.chain.GetPoolPair(ctx, key)
		if errors.Is(err, chain.ErrPoolNotFound) {
			continue
		}
		if err != nil {
			return model.PoolPairInfo{}, false, err
		}
		for _, info := range pools {
			return info, true, nil
		}
	}
	return model.PoolPairInfo{}, false, nil
}

// PriceOfDFIInUSD averages the DFI price over the DFI-USDT and DFI-USDC pools.
func (s *Service) PriceOfDFIInUSD(ctx context.Context) (decimal.Decimal, bool, error) {
	return cache.Get(ctx, s.cache, keyUSDPerDFI, ttlUSDPerDFI, func(ctx context.Context) (decimal.Decimal, bool, error) {
		totalUSD, totalDFI := decimal.Zero, decimal.Zero
		for _, stable := range []string{"USDT", "USDC"} {
			pair, ok, err := s.PoolPair(ctx, dfiSymbol, stable)
			if err != nil {
				return decimal.Decimal{}, false, err
			}
			if !ok {
				continue
			}
			switch {
			case pair.IDTokenA == "0":
				totalUSD = totalUSD.Add(pair.ReserveB)
				totalDFI = totalDFI.Add(pair.ReserveA)
			case pair.IDTokenB == "0":
				totalUSD = totalUSD.Add(pair.ReserveA)
				totalDFI = totalDFI.Add(pair.ReserveB)
			}
		}
		if totalUSD.IsZero() || totalDFI.IsZero() {
			return decimal.Decimal{}, false, nil
		}
		return totalUSD.Div(totalDFI), true, nil
	})
}

// PriceOfToken returns the USD price of token id. Stablecoins are pegged at 1
// and DFI uses the reference pools. Other tokens are priced through their DFI
// pool, then their DUSD pool.
func (s *Service) PriceOfToken(ctx context.Context, id uint32) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf("PRICE_FOR_TOKEN_%d", id)
	return cache.Get(ctx, s.cache, key, ttlPrice, func(ctx context.Context) (decimal.Decimal, bool, error) {
		token, ok, err := s.stores.Tokens.GetToken(ctx, id)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		if !ok {
			return decimal.Decimal{}, false, fmt.Errorf("price of token %d: %w", id, ErrTokenNotFound)
		}
		if stableSymbols[token.Symbol] {
			return decimal.NewFromInt(1), true, nil
		}
		if token.Symbol == dfiSymbol {
			return s.PriceOfDFIInUSD(ctx)
		}

		dfiPair, ok, err := s.PoolPair(ctx, token.Symbol, dfiSymbol)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		if ok && (dfiPair.IDTokenA == "0" || dfiPair.IDTokenB == "0") {
			dfiPrice, ok, err := s.PriceOfDFIInUSD(ctx)
			if err != nil || !ok {
				return decimal.Decimal{}, false, err
			}
			dfiReserve, tokenReserve := dfiPair.ReserveA, dfiPair.ReserveB
			if dfiPair.IDTokenB == "0" {
				dfiReserve, tokenReserve = dfiPair.ReserveB, dfiPair.ReserveA
			}
			if tokenReserve.IsZero() {
				return decimal.Decimal{}, false, nil
			}
			return dfiReserve.Div(tokenReserve).Mul(dfiPrice), true, nil
		}

		dusdPair, ok, err := s.PoolPair(ctx, token.Symbol, dusdSymbol)
		if err != nil || !ok {
			return decimal.Decimal{}, false, err
		}
		// Only the first symbol is compared: long symbols are truncated.
		dusdReserve, tokenReserve := dusdPair.ReserveB, dusdPair.ReserveA
		if firstSymbol(dusdPair.Symbol) == dusdSymbol {
			dusdReserve, tokenReserve = dusdPair.ReserveA, dusdPair.ReserveB
		}
		if tokenReserve.IsZero() {
			return decimal.Decimal{}, false, nil
		}
		return dusdReserve.Div(tokenReserve), true, nil
	})
}

// USDVolume sums the USD value of the pool's swaps over the last day of
// indexed blocks. It is unresolved if any swapped token has no price.
func (s *Service) USDVolume(ctx context.Context, poolID string) (decimal.Decimal, bool, error) {
	highest, _, err := s.stores.Blocks.Highest(ctx)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	var q storage.Query
	if highest.Height >= BlocksPerDay {
		q.GT = sortkey.EncodeHeight(highest.Height - BlocksPerDay)
	}

	key := "H24_VOLUME_" + poolID
	return cache.Get(ctx, s.cache, key, ttlVolume, func(ctx context.Context) (decimal.Decimal, bool, error) {
		swaps, err := s.stores.PoolSwaps.Query(ctx, poolID, q)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		total := decimal.Zero
		for _, swap := range swaps {
			amount, err := decimal.NewFromString(swap.FromAmount)
			if err != nil {
				return decimal.Decimal{}, false, fmt.Errorf("swap %s amount: %w", swap.ID, err)
			}
			price, ok, err := s.PriceOfToken(ctx, swap.FromTokenID)
			if err != nil {
				return decimal.Decimal{}, false, err
			}
			if !ok {
				s.logger.Debug("volume unresolved", zap.String("pool_id", poolID), zap.Uint32("token_id", swap.FromTokenID))
				return decimal.Decimal{}, false, nil
			}
			total = total.Add(amount.Mul(price))
		}
		return total, true, nil
	})
}

// TotalLiquidityUSD values a pool paired with a stablecoin or with DFI. Other
// pairs are unresolved.
func (s *Service) TotalLiquidityUSD(ctx context.Context, info model.PoolPairInfo) (decimal.Decimal, bool, error) {
	a, b := splitSymbol(info.Symbol)
	if stableSymbols[a] {
		return info.ReserveA.Mul(two), true, nil
	}
	if stableSymbols[b] {
		return info.ReserveB.Mul(two), true, nil
	}

	if a != dfiSymbol && b != dfiSymbol {
		return decimal.Decimal{}, false, nil
	}
	dfiPrice, ok, err := s.PriceOfDFIInUSD(ctx)
	if err != nil || !ok {
		return decimal.Decimal{}, false, err
	}
	reserve := info.ReserveB
	if a == dfiSymbol {
		reserve = info.ReserveA
	}
	return reserve.Mul(two).Mul(dfiPrice), true, nil
}

// APR estimates the pool's yearly reward and commission yield. Every field is
// null when any input cannot be resolved.
func (s *Service) APR(ctx context.Context, poolID string, info model.PoolPairInfo) (model.APR, error) {
	customUSD, ok, err := s.yearlyCustomRewardUSD(ctx, info)
	if err != nil || !ok {
		return model.APR{}, err
	}
	pctUSD, ok, err := s.yearlyRewardPctUSD(ctx, info)
	if err != nil || !ok {
		return model.APR{}, err
	}
	loanUSD, ok, err := s.yearlyLoanRewardUSD(ctx, poolID)
	if err != nil || !ok {
		return model.APR{}, err
	}
	liquidity, ok, err := s.TotalLiquidityUSD(ctx, info)
	if err != nil || !ok || liquidity.IsZero() {
		return model.APR{}, err
	}
	volume, ok, err := s.USDVolume(ctx, poolID)
	if err != nil || !ok {
		return model.APR{}, err
	}

	reward := customUSD.Add(pctUSD).Add(loanUSD).Div(liquidity)
	commission := info.Commission.Mul(volume).Mul(daysPerYear).Div(liquidity)
	return model.APR{
		Reward:     decimal.NewNullDecimal(reward),
		Commission: decimal.NewNullDecimal(commission),
		Total:      decimal.NewNullDecimal(reward.Add(commission)),
	}, nil
}

// PoolStats combines live pool state with its liquidity, volume and APR.
func (s *Service) PoolStats(ctx context.Context, poolID string) (model.PoolStats, error) {
	pools, err := s.chain.GetPoolPair(ctx, poolID)
	if err != nil {
		return model.PoolStats{}, err
	}
	info, ok := pools[poolID]
	if !ok {
		return model.PoolStats{}, fmt.Errorf("%s: %w", poolID, chain.ErrPoolNotFound)
	}

	stats := model.PoolStats{
		ID:       poolID,
		Symbol:   info.Symbol,
		ReserveA: info.ReserveA,
		ReserveB: info.ReserveB,
	}
	liquidity, ok, err := s.TotalLiquidityUSD(ctx, info)
	if err != nil {
		return model.PoolStats{}, fmt.Errorf("total liquidity: %w", err)
	}
	stats.TotalLiquidityUSD = decimal.NullDecimal{Decimal: liquidity, Valid: ok}

	volume, ok, err := s.USDVolume(ctx, poolID)
	if err != nil {
		return model.PoolStats{}, fmt.Errorf("volume: %w", err)
	}
	stats.VolumeH24 = decimal.NullDecimal{Decimal: volume, Valid: ok}

	if stats.APR, err = s.APR(ctx, poolID, info); err != nil {
		return model.PoolStats{}, fmt.Errorf("apr: %w", err)
	}
	return stats, nil
}

func (s *Service) yearlyCustomRewardUSD(ctx context.Context, info model.PoolPairInfo) (decimal.Decimal, bool, error) {
	if info.CustomRewards == nil {
		return decimal.Zero, true, nil
	}
	dfiPrice, ok, err := s.PriceOfDFIInUSD(ctx)
	if err != nil || !ok {
		return decimal.Decimal{}, false, err
	}

	total := decimal.Zero
	for _, reward := range info.CustomRewards {
		amount, token, found := strings.Cut(reward, "@")
		if !found || (token != "0" && token != dfiSymbol) {
			continue
		}
		perBlock, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("custom reward %q: %w", reward, err)
		}
		total = total.Add(perBlock.Mul(blocksPerYear).Mul(dfiPrice))
	}
	return total, true, nil
}

func (s *Service) yearlyRewardPctUSD(ctx context.Context, info model.PoolPairInfo) (decimal.Decimal, bool, error) {
	if !info.RewardPct.Valid {
		return decimal.Zero, true, nil
	}
	dfiPrice, ok, err := s.PriceOfDFIInUSD(ctx)
	if err != nil || !ok {
		return decimal.Decimal{}, false, err
	}
	daily, ok, err := s.dailyDFIReward(ctx)
	if err != nil || !ok {
		return decimal.Decimal{}, false, err
	}
	return info.RewardPct.Decimal.Mul(daily).Mul(daysPerYear).Mul(dfiPrice), true, nil
}

func (s *Service) yearlyLoanRewardUSD(ctx context.Context, poolID string) (decimal.Decimal, bool, error) {
	splits, ok, err := s.loanTokenSplits(ctx)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	split, found := splits[poolID]
	if !ok || !found {
		return decimal.Zero, true, nil
	}

	dfiPrice, ok, err := s.PriceOfDFIInUSD(ctx)
	if err != nil || !ok {
		return decimal.Decimal{}, false, err
	}
	emission, ok, err := s.loanEmission(ctx)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	if !ok {
		return decimal.Zero, true, nil
	}
	return emission.Mul(split).Mul(blocksPerYear).Mul(dfiPrice), true, nil
}

func (s *Service) dailyDFIReward(ctx context.Context) (decimal.Decimal, bool, error) {
	return cache.Get(ctx, s.cache, keyDailyDFIReward, ttlDailyDFIReward, func(ctx context.Context) (decimal.Decimal, bool, error) {
		var reward decimal.Decimal
		ok, err := s.gov(ctx, keyDailyDFIReward, &reward)
		return reward, ok, err
	})
}

func (s *Service) loanTokenSplits(ctx context.Context) (map[string]decimal.Decimal, bool, error) {
	return cache.Get(ctx, s.cache, keyLoanTokenSplits, ttlLoanTokenSplits, func(ctx context.Context) (map[string]decimal.Decimal, bool, error) {
		var splits map[string]decimal.Decimal
		ok, err := s.gov(ctx, keyLoanTokenSplits, &splits)
		return splits, ok, err
	})
}

func (s *Service) loanEmission(ctx context.Context) (decimal.Decimal, bool, error) {
	return cache.Get(ctx, s.cache, keyLoanTokenEmission, ttlLoanTokenEmission, func(ctx context.Context) (decimal.Decimal, bool, error) {
		info, err := s.chain.GetBlockchainInfo(ctx)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		subsidy := BlockSubsidy(info.ForkHeight(eunosFork), info.Blocks)
		return subsidy.Mul(decimal.RequireFromString(loanShare)), true, nil
	})
}

// gov decodes the governance variable name into out. ok is false when the
// node does not report it.
func (s *Service) gov(ctx context.Context, name string, out any) (bool, error) {
	values, err := s.chain.GetGov(ctx, name)
	if err != nil {
		return false, err
	}
	raw, ok := values[name]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func splitSymbol(symbol string) (string, string) {
	a, b, _ := strings.Cut(symbol, "-")
	return a, b
}

func firstSymbol(symbol string) string {
	a, _ := splitSymbol(symbol)
	return a
}
