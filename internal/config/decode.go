package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPC         RPC
	From        uint32
	To          uint32
	BatchSize   uint32
	Concurrency int
	Types       []string
	Out         string
	Errors      string
	LogLevel    string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"batch-size":  uint32(100),
		"concurrency": 4,
		"out":         "./data/dftx.jsonl",
		"errors":      "./data/decode_errors.jsonl",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPC:         readRPC(v),
		From:        v.GetUint32("from"),
		To:          v.GetUint32("to"),
		BatchSize:   v.GetUint32("batch-size"),
		Concurrency: v.GetInt("concurrency"),
		Types:       getStringSlice(v, "types"),
		Out:         v.GetString("out"),
		Errors:      v.GetString("errors"),
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.To != 0 && cfg.To < cfg.From {
		return DecodeConfig{}, fmt.Errorf("to %d is below from %d", cfg.To, cfg.From)
	}
	if cfg.BatchSize == 0 {
		return DecodeConfig{}, fmt.Errorf("batch-size must be positive")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}
