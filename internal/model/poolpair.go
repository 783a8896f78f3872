package model

import "github.com/shopspring/decimal"

// PoolPairInfo is the live pool pair state reported by getpoolpair.
type PoolPairInfo struct {
	ID               string              `json:"-"`
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Status           bool                `json:"status"`
	IDTokenA         string              `json:"idTokenA"`
	IDTokenB         string              `json:"idTokenB"`
	ReserveA         decimal.Decimal     `json:"reserveA"`
	ReserveB         decimal.Decimal     `json:"reserveB"`
	Commission       decimal.Decimal     `json:"commission"`
	TotalLiquidity   decimal.Decimal     `json:"totalLiquidity"`
	RewardPct        decimal.NullDecimal `json:"rewardPct"`
	CustomRewards    []string            `json:"customRewards,omitempty"`
	TradeEnabled     bool                `json:"tradeEnabled"`
	OwnerAddress     string              `json:"ownerAddress"`
	CreationTx       string              `json:"creationTx"`
	CreationHeight   uint32              `json:"creationHeight"`
	BlockCommissionA decimal.Decimal     `json:"blockCommissionA"`
	BlockCommissionB decimal.Decimal     `json:"blockCommissionB"`
}

// APR is the annualized yield of a pool. Null fields mean the yield could not be resolved.
type APR struct {
	Reward     decimal.NullDecimal `json:"reward"`
	Commission decimal.NullDecimal `json:"commission"`
	Total      decimal.NullDecimal `json:"total"`
}

// PoolStats is the analytics view of a single pool.
type PoolStats struct {
	ID                string              `json:"id"`
	Symbol            string              `json:"symbol"`
	ReserveA          decimal.Decimal     `json:"reserveA"`
	ReserveB          decimal.Decimal     `json:"reserveB"`
	TotalLiquidityUSD decimal.NullDecimal `json:"totalLiquidityUsd"`
	VolumeH24         decimal.NullDecimal `json:"volumeH24"`
	APR               APR                 `json:"apr"`
}
