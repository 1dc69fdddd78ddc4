package config

import (
	"fmt"
	"strings"

	"github.com/lober-org/welovedogs/crypto"
)

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID must be non-zero")
	}
	if c.RPC.RateLimitPerSecond < 0 || c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc: RateLimitBurst required when RateLimitPerSecond is set")
	}
	if c.RPC.MaxBodyBytes <= 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if owner := strings.TrimSpace(c.Badge.Owner); owner != "" {
		if _, err := crypto.ParseAddress(owner); err != nil {
			return fmt.Errorf("badge: Owner: %w", err)
		}
	}
	return nil
}

// BadgeOwner returns the configured badge owner, ok=false when unset.
func (c *Config) BadgeOwner() ([20]byte, bool) {
	owner := strings.TrimSpace(c.Badge.Owner)
	if owner == "" {
		return [20]byte{}, false
	}
	addr, err := crypto.ParseAddress(owner)
	if err != nil {
		return [20]byte{}, false
	}
	return addr, true
}
