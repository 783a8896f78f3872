package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends accepted by the store setting.
const (
	StoreLevelDB  = "leveldb"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// RPC holds node connection settings shared by every command.
type RPC struct {
	URL      string
	User     string
	Password string
}

// Store selects and configures the derived-record backend.
type Store struct {
	Backend string
	DataDir string
	PGDSN   string
}

// Config holds configuration for the run command.
type Config struct {
	RPC          RPC
	Store        Store
	StartHeight  uint32
	StopHeight   uint32
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"store":         StoreLevelDB,
		"data-dir":      "./data",
		"poll-interval": 30 * time.Second,
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPC:          readRPC(v),
		Store:        readStore(v),
		StartHeight:  v.GetUint32("start-height"),
		StopHeight:   v.GetUint32("stop-height"),
		PollInterval: v.GetDuration("poll-interval"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.StopHeight != 0 && cfg.StopHeight < cfg.StartHeight {
		return Config{}, fmt.Errorf("stop-height %d is below start-height %d", cfg.StopHeight, cfg.StartHeight)
	}
	if err := cfg.Store.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (s Store) validate() error {
	switch s.Backend {
	case StoreLevelDB:
		if s.DataDir == "" {
			return fmt.Errorf("data-dir is required for the %s store", s.Backend)
		}
	case StoreMemory:
	case StorePostgres:
		if s.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the %s store", s.Backend)
		}
	default:
		return fmt.Errorf("unknown store %q", s.Backend)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func readRPC(v *viper.Viper) RPC {
	return RPC{
		URL:      v.GetString("rpc"),
		User:     v.GetString("rpc-user"),
		Password: v.GetString("rpc-password"),
	}
}

func readStore(v *viper.Viper) Store {
	return Store{
		Backend: strings.ToLower(v.GetString("store")),
		DataDir: v.GetString("data-dir"),
		PGDSN:   v.GetString("pg-dsn"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
