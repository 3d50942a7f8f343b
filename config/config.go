// Package config loads LUMEN configuration from TOML files and
// environment variables via Viper. Precedence, lowest to highest:
// system config, user config, project config, environment.
package config

// Config is the root LUMEN configuration.
type Config struct {
	Network   NetworkConfig   `mapstructure:"network"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Chunks    ChunksConfig    `mapstructure:"chunks"`
	Waterfall WaterfallConfig `mapstructure:"waterfall"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
}

// NetworkConfig selects the render gateway and its rate limits.
type NetworkConfig struct {
	Name              string `mapstructure:"name"`        // testnet, mainnet, or local
	GatewayURL        string `mapstructure:"gateway_url"` // empty = derived from name
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxCallsPerMinute int    `mapstructure:"max_calls_per_minute"`
	BurstPerSecond    int    `mapstructure:"burst_per_second"`
	Hardened          bool   `mapstructure:"hardened"` // block private-range gateway addresses
}

// ResolverConfig tunes include resolution.
type ResolverConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"` // cache lifetime for fetched content
	MaxDepth   int `mapstructure:"max_depth"`   // include nesting limit
}

// ChunksConfig tunes the progressive chunk loader.
type ChunksConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	BatchSize     int `mapstructure:"batch_size"`
}

// WaterfallConfig tunes the render continuation loader.
type WaterfallConfig struct {
	MaxContinuations int `mapstructure:"max_continuations"`
	MaxConcurrent    int `mapstructure:"max_concurrent"`
}

// ServerConfig configures the viewer websocket server.
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // nil = default, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite database path
}

const (
	// DefaultServerPort is the viewer server's development port.
	DefaultServerPort = 4820

	// DefaultDirPermissions is applied when creating ~/.lumen.
	DefaultDirPermissions = 0o755
)

// Gateway URLs per named network. Local is for a gateway run alongside
// a sandboxed ledger.
const (
	TestnetGatewayURL = "https://render-testnet.lumenweave.dev/rpc"
	MainnetGatewayURL = "https://render.lumenweave.dev/rpc"
	LocalGatewayURL   = "http://localhost:8000/rpc"
)

// Gateway returns the effective gateway URL: the explicit override when
// set, otherwise the URL derived from the network name.
func (n NetworkConfig) Gateway() string {
	if n.GatewayURL != "" {
		return n.GatewayURL
	}
	switch n.Name {
	case "mainnet":
		return MainnetGatewayURL
	case "local":
		return LocalGatewayURL
	default:
		return TestnetGatewayURL
	}
}
