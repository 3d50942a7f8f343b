package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "testnet", cfg.Network.Name)
	assert.Equal(t, 30, cfg.Network.TimeoutSeconds)
	assert.Equal(t, 30, cfg.Resolver.TTLSeconds)
	assert.Equal(t, 16, cfg.Resolver.MaxDepth)
	assert.Equal(t, 4, cfg.Chunks.MaxConcurrent)
	assert.Equal(t, 10, cfg.Waterfall.MaxContinuations)
	assert.Equal(t, "lumen.db", cfg.Store.Path)
	require.NotNil(t, cfg.Server.Port)
	assert.Equal(t, DefaultServerPort, *cfg.Server.Port)
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[network]
name = "local"
timeout_seconds = 5

[resolver]
max_depth = 4

[server]
port = 9000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Network.Name)
	assert.Equal(t, 5, cfg.Network.TimeoutSeconds)
	assert.Equal(t, 4, cfg.Resolver.MaxDepth)
	require.NotNil(t, cfg.Server.Port)
	assert.Equal(t, 9000, *cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Resolver.TTLSeconds)
	assert.Equal(t, "lumen.db", cfg.Store.Path)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestGateway_DerivedFromNetworkName(t *testing.T) {
	tests := []struct {
		name     string
		network  NetworkConfig
		expected string
	}{
		{"testnet default", NetworkConfig{Name: "testnet"}, TestnetGatewayURL},
		{"mainnet", NetworkConfig{Name: "mainnet"}, MainnetGatewayURL},
		{"local", NetworkConfig{Name: "local"}, LocalGatewayURL},
		{"empty falls back to testnet", NetworkConfig{}, TestnetGatewayURL},
		{"explicit override wins", NetworkConfig{Name: "mainnet", GatewayURL: "http://example.com/rpc"}, "http://example.com/rpc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.network.Gateway())
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		path := writeConfig(t, "")
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("unknown network name", func(t *testing.T) {
		cfg := valid()
		cfg.Network.Name = "devnet"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad gateway url", func(t *testing.T) {
		cfg := valid()
		cfg.Network.GatewayURL = "not a url"
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Network.TimeoutSeconds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative ttl", func(t *testing.T) {
		cfg := valid()
		cfg.Resolver.TTLSeconds = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero max depth", func(t *testing.T) {
		cfg := valid()
		cfg.Resolver.MaxDepth = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero server port", func(t *testing.T) {
		cfg := valid()
		zero := 0
		cfg.Server.Port = &zero
		assert.Error(t, cfg.Validate())
	})

	t.Run("nil server port is valid", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = nil
		assert.NoError(t, cfg.Validate())
	})
}
