package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Network defaults
	v.SetDefault("network.name", "testnet")
	v.SetDefault("network.timeout_seconds", 30)
	v.SetDefault("network.max_calls_per_minute", 120)
	v.SetDefault("network.burst_per_second", 10)
	v.SetDefault("network.hardened", false) // local gateways are common in dev

	// Resolver defaults
	v.SetDefault("resolver.ttl_seconds", 30)
	v.SetDefault("resolver.max_depth", 16)

	// Chunk loader defaults
	v.SetDefault("chunks.max_concurrent", 4)
	v.SetDefault("chunks.batch_size", 2)

	// Waterfall defaults
	v.SetDefault("waterfall.max_continuations", 10)
	v.SetDefault("waterfall.max_concurrent", 4)

	// Viewer server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	// Snapshot store defaults
	v.SetDefault("store.path", "lumen.db")
}
