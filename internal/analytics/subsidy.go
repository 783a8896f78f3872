package analytics

import "github.com/shopspring/decimal"

const (
	coin = 100_000_000

	preEunosSubsidy      = 200 * coin
	eunosSubsidy         = 40_504_000_000
	eunosReductionPeriod = 32_690
	reductionNumerator   = 1_658
	reductionDenominator = 100_000
)

// BlockSubsidy returns the block reward at height in DFI. From the Eunos fork
// the reward starts at 405.04 DFI and drops by 1.658% every 32690 blocks.
func BlockSubsidy(eunosHeight, height uint32) decimal.Decimal {
	if height < eunosHeight || eunosHeight == 0 {
		return decimal.New(preEunosSubsidy, -8)
	}

	subsidy := int64(eunosSubsidy)
	reductions := (height - eunosHeight) / eunosReductionPeriod
	for i := uint32(0); i < reductions && subsidy > 0; i++ {
		subsidy -= subsidy * reductionNumerator / reductionDenominator
	}
	return decimal.New(subsidy, -8)
}
