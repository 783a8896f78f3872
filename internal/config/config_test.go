package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.String("rpc", "", "")
	fs.String("store", StoreLevelDB, "")
	fs.String("data-dir", "./data", "")
	fs.String("pg-dsn", "", "")
	fs.Uint32("start-height", 0, "")
	fs.Uint32("stop-height", 0, "")
	fs.Duration("poll-interval", 30*time.Second, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", runFlags(t, "--rpc", "http://node:8554"))
	require.NoError(t, err)

	require.Equal(t, "http://node:8554", cfg.RPC.URL)
	require.Equal(t, StoreLevelDB, cfg.Store.Backend)
	require.Equal(t, "./data", cfg.Store.DataDir)
	require.Equal(t, 30*time.Second, cfg.PollInterval)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("INDEXER_RPC_USER", "rpc")
	t.Setenv("INDEXER_RPC_PASSWORD", "secret")
	t.Setenv("INDEXER_STORE", "Postgres")
	t.Setenv("INDEXER_PG_DSN", "postgres://localhost/defi")

	cfg, err := Load("", runFlags(t))
	require.NoError(t, err)

	require.Equal(t, RPC{User: "rpc", Password: "secret"}, cfg.RPC)
	require.Equal(t, StorePostgres, cfg.Store.Backend)
	require.Equal(t, "postgres://localhost/defi", cfg.Store.PGDSN)
}

func TestLoadFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc: http://file:8554\nstore: memory\nstart-height: 100\n"), 0o600))

	cfg, err := Load(path, runFlags(t, "--start-height", "200"))
	require.NoError(t, err)

	require.Equal(t, "http://file:8554", cfg.RPC.URL)
	require.Equal(t, StoreMemory, cfg.Store.Backend)
	require.Equal(t, uint32(200), cfg.StartHeight)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	_, err := Load("", runFlags(t, "--start-height", "10", "--stop-height", "5"))
	require.ErrorContains(t, err, "below start-height")

	_, err = Load("", runFlags(t, "--store", "postgres"))
	require.ErrorContains(t, err, "pg-dsn is required")

	_, err = Load("", runFlags(t, "--store", "badger"))
	require.ErrorContains(t, err, "unknown store")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), runFlags(t))
	require.ErrorContains(t, err, "read config")
}

func TestLoadDecode(t *testing.T) {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.Uint32("from", 0, "")
	fs.Uint32("to", 0, "")
	fs.StringSlice("types", nil, "")
	fs.Int("concurrency", 4, "")
	require.NoError(t, fs.Parse([]string{"--from", "10", "--to", "20", "--types", "PoolSwap, s", "--concurrency", "0"}))

	cfg, err := LoadDecode("", fs)
	require.NoError(t, err)

	require.Equal(t, uint32(10), cfg.From)
	require.Equal(t, uint32(20), cfg.To)
	require.Equal(t, uint32(100), cfg.BatchSize)
	require.Equal(t, 1, cfg.Concurrency)
	require.Equal(t, []string{"PoolSwap", "s"}, cfg.Types)
	require.Equal(t, "./data/decode_errors.jsonl", cfg.Errors)
}

func TestLoadDecodeRejectsInvertedRange(t *testing.T) {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.Uint32("from", 0, "")
	fs.Uint32("to", 0, "")
	require.NoError(t, fs.Parse([]string{"--from", "20", "--to", "10"}))

	_, err := LoadDecode("", fs)
	require.ErrorContains(t, err, "below from")
}

func TestLoadPoolParsesIDs(t *testing.T) {
	t.Setenv("INDEXER_POOL", "4, 5,,6")
	t.Setenv("INDEXER_STORE", "memory")

	cfg, err := LoadPool("", nil)
	require.NoError(t, err)
	require.Equal(t, []uint32{4, 5, 6}, cfg.PoolIDs)

	t.Setenv("INDEXER_POOL", "BTC-DFI")
	_, err = LoadPool("", nil)
	require.ErrorContains(t, err, `invalid pool id "BTC-DFI"`)
}
