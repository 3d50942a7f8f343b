package config

import (
	"net/url"

	"github.com/lumenweave/lumen/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Network.Name {
	case "testnet", "mainnet", "local", "":
	default:
		return errors.Newf("network.name must be testnet, mainnet, or local, got %q", c.Network.Name)
	}

	if c.Network.GatewayURL != "" {
		u, err := url.Parse(c.Network.GatewayURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("network.gateway_url is not a valid URL: %q", c.Network.GatewayURL)
		}
	}

	if c.Network.TimeoutSeconds <= 0 {
		return errors.Newf("network.timeout_seconds must be > 0, got %d", c.Network.TimeoutSeconds)
	}
	if c.Network.MaxCallsPerMinute < 0 {
		return errors.Newf("network.max_calls_per_minute must be >= 0, got %d", c.Network.MaxCallsPerMinute)
	}
	if c.Network.BurstPerSecond < 0 {
		return errors.Newf("network.burst_per_second must be >= 0, got %d", c.Network.BurstPerSecond)
	}

	if c.Resolver.TTLSeconds < 0 {
		return errors.Newf("resolver.ttl_seconds must be >= 0, got %d", c.Resolver.TTLSeconds)
	}
	if c.Resolver.MaxDepth <= 0 {
		return errors.Newf("resolver.max_depth must be > 0, got %d", c.Resolver.MaxDepth)
	}

	if c.Chunks.MaxConcurrent <= 0 {
		return errors.Newf("chunks.max_concurrent must be > 0, got %d", c.Chunks.MaxConcurrent)
	}
	if c.Chunks.BatchSize <= 0 {
		return errors.Newf("chunks.batch_size must be > 0, got %d", c.Chunks.BatchSize)
	}

	if c.Waterfall.MaxContinuations <= 0 {
		return errors.Newf("waterfall.max_continuations must be > 0, got %d", c.Waterfall.MaxContinuations)
	}
	if c.Waterfall.MaxConcurrent <= 0 {
		return errors.Newf("waterfall.max_concurrent must be > 0, got %d", c.Waterfall.MaxConcurrent)
	}

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && *c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", *c.Server.Port)
	}

	return nil
}
