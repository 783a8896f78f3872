package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// PoolConfig holds configuration for the pool command.
type PoolConfig struct {
	RPC      RPC
	Store    Store
	PoolIDs  []uint32
	Out      string
	LogLevel string
}

// LoadPool merges config file, environment variables, and flags into PoolConfig.
func LoadPool(cfgFile string, flags *pflag.FlagSet) (PoolConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"store":    StoreLevelDB,
		"data-dir": "./data",
	})
	if err != nil {
		return PoolConfig{}, err
	}

	ids, err := parsePoolIDs(getStringSlice(v, "pool"))
	if err != nil {
		return PoolConfig{}, err
	}

	cfg := PoolConfig{
		RPC:      readRPC(v),
		Store:    readStore(v),
		PoolIDs:  ids,
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}
	if err := cfg.Store.validate(); err != nil {
		return PoolConfig{}, err
	}
	return cfg, nil
}

func parsePoolIDs(items []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseUint(item, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid pool id %q: %w", item, err)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
