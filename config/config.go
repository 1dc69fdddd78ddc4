package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables consulted by Load.
const (
	EnvRPCToken    = "WLD_RPC_TOKEN"
	EnvEnvironment = "WLD_ENV"
	EnvIndexerDSN  = "WLD_INDEXER_DSN"
)

type Config struct {
	RPCAddress       string    `toml:"RPCAddress"`
	DataDir          string    `toml:"DataDir"`
	ChainID          uint64    `toml:"ChainID"`
	Environment      string    `toml:"Environment"`
	StrictInitialize bool      `toml:"StrictInitialize"`
	AllowMigrate     bool      `toml:"AllowMigrate"`
	RPC              RPC       `toml:"rpc"`
	Indexer          Indexer   `toml:"indexer"`
	Logging          Logging   `toml:"logging"`
	Telemetry        Telemetry `toml:"telemetry"`
	Badge            Badge     `toml:"badge"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		RPCAddress:  "127.0.0.1:8547",
		DataDir:     "./wld-data",
		ChainID:     0x776c64,
		Environment: "dev",
		RPC: RPC{
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			MaxBodyBytes:       1 << 20,
			TrustedProxies:     []string{},
			ReadHeaderTimeout:  5,
			ReadTimeout:        15,
			WriteTimeout:       15,
			IdleTimeout:        60,
		},
		Indexer: Indexer{
			Enabled: true,
			DSN:     "",
		},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1,
		},
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Environment overrides are applied after decoding and are
// never persisted.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		return finish(cfg)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	if cfg.Indexer.Enabled && strings.TrimSpace(cfg.Indexer.DSN) == "" {
		cfg.Indexer.DSN = filepath.Join(cfg.DataDir, "index.db")
	}
	if cfg.RPC.TrustedProxies == nil {
		cfg.RPC.TrustedProxies = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv(EnvRPCToken)); token != "" {
		cfg.RPC.AuthToken = token
	}
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Environment = env
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvIndexerDSN)); dsn != "" {
		cfg.Indexer.DSN = dsn
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
