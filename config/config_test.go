package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lober-org/welovedogs/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != Default().RPCAddress {
		t.Fatalf("unexpected RPC address %q", cfg.RPCAddress)
	}
	if cfg.Indexer.DSN != filepath.Join(cfg.DataDir, "index.db") {
		t.Fatalf("unexpected indexer DSN %q", cfg.Indexer.DSN)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ChainID != cfg.ChainID || again.RPC.MaxBodyBytes != 1<<20 {
		t.Fatalf("reloaded config differs: %+v", again)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	owner := crypto.AddressFromRaw([20]byte{0x42}).String()
	contents := `RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
ChainID = 99
StrictInitialize = true

[rpc]
RateLimitPerSecond = 5
RateLimitBurst = 10
MaxBodyBytes = 4096
MaxScanLimit = 50
TrustProxyHeaders = true
TrustedProxies = ["10.0.0.1"]

[indexer]
Enabled = true
DSN = "postgres://wld@localhost/index"

[logging]
Level = "debug"
File = "/var/log/wld/node.log"
MaxSizeMB = 10

[telemetry]
Traces = true
SampleRatio = 0.25

[badge]
Owner = "` + owner + `"
Name = "Good Dog"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 99 || !cfg.StrictInitialize {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.RPC.RateLimitBurst != 10 || cfg.RPC.MaxScanLimit != 50 || len(cfg.RPC.TrustedProxies) != 1 {
		t.Fatalf("unexpected rpc section: %+v", cfg.RPC)
	}
	if cfg.RPC.IdleTimeout != 60 {
		t.Fatalf("defaults not retained for omitted keys: %+v", cfg.RPC)
	}
	if cfg.Indexer.DSN != "postgres://wld@localhost/index" {
		t.Fatalf("unexpected dsn %q", cfg.Indexer.DSN)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 5 {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("unexpected telemetry section: %+v", cfg.Telemetry)
	}
	addr, ok := cfg.BadgeOwner()
	if !ok || addr != ([20]byte{0x42}) {
		t.Fatalf("unexpected badge owner")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("RPCAddress = \"x:1\"\nGenesisFile = \"g.json\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "GenesisFile") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvRPCToken, "s3cret")
	t.Setenv(EnvEnvironment, "prod")
	t.Setenv(EnvIndexerDSN, "file::memory:")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.AuthToken != "s3cret" || cfg.Environment != "prod" || cfg.Indexer.DSN != "file::memory:" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty address":   func(c *Config) { c.RPCAddress = " " },
		"zero chain":      func(c *Config) { c.ChainID = 0 },
		"missing burst":   func(c *Config) { c.RPC.RateLimitBurst = 0 },
		"zero body":       func(c *Config) { c.RPC.MaxBodyBytes = 0 },
		"bad level":       func(c *Config) { c.Logging.Level = "loud" },
		"bad sample":      func(c *Config) { c.Telemetry.SampleRatio = 2 },
		"bad badge owner": func(c *Config) { c.Badge.Owner = "nope" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
