// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - Functions that may do I/O accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ShardCount configures the number of shards in the report store.
	ShardCount int `koanf:"shard_count"`

	// IdentityHeader names the request header the fronting gateway fills
	// with the verified caller identity.
	IdentityHeader string `koanf:"identity_header"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		ShardCount:     8,
		IdentityHeader: "X-Caller-Principal",
	}
}
