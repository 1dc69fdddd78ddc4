package config

// RPC configures the JSON-RPC listener.
type RPC struct {
	// AuthToken guards administrative methods. It is normally supplied via
	// WLD_RPC_TOKEN rather than written to disk.
	AuthToken          string   `toml:"AuthToken,omitempty"`
	RateLimitPerSecond float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst     int      `toml:"RateLimitBurst"`
	MaxBodyBytes       int64    `toml:"MaxBodyBytes"`
	TrustProxyHeaders  bool     `toml:"TrustProxyHeaders"`
	TrustedProxies     []string `toml:"TrustedProxies"`
	ReadHeaderTimeout  int      `toml:"ReadHeaderTimeout"`
	ReadTimeout        int      `toml:"ReadTimeout"`
	WriteTimeout       int      `toml:"WriteTimeout"`
	IdleTimeout        int      `toml:"IdleTimeout"`
	// MaxScanLimit optionally caps the limit accepted by the donor and
	// recipient listing methods. Zero accepts any limit.
	MaxScanLimit       uint32   `toml:"MaxScanLimit"`
}

// Indexer configures the SQL donation index.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	DSN     string `toml:"DSN"`
}

// Logging configures the structured logger. An empty File logs to stdout only.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Badge configures the proof-of-donation collection created on first start.
type Badge struct {
	Owner   string `toml:"Owner"`
	BaseURI string `toml:"BaseURI"`
	Name    string `toml:"Name"`
	Symbol  string `toml:"Symbol"`
}
