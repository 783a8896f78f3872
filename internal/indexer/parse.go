package indexer

import (
	"fmt"
	"strings"

	"defiScope/internal/dftx"
)

var typeByName = map[string]dftx.Type{
	"createtoken":         dftx.TypeCreateToken,
	"createpoolpair":      dftx.TypeCreatePoolPair,
	"updatepoolpair":      dftx.TypeUpdatePoolPair,
	"poolswap":            dftx.TypePoolSwap,
	"compositeswap":       dftx.TypeCompositeSwap,
	"pooladdliquidity":    dftx.TypePoolAddLiquidity,
	"poolremoveliquidity": dftx.TypePoolRemoveLiquidity,
}

// ParseTypes converts type names (case-insensitive) or single opcode
// characters into custom transaction types.
func ParseTypes(inputs []string) ([]dftx.Type, error) {
	types := make([]dftx.Type, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if t, ok := typeByName[strings.ToLower(input)]; ok {
			types = append(types, t)
			continue
		}
		if len(input) != 1 {
			return nil, fmt.Errorf("invalid custom transaction type: %s", input)
		}
		types = append(types, dftx.Type(input[0]))
	}
	return types, nil
}
