package catalogcache

import "time"

// Config holds the sturdyc settings for the page cache.
type Config struct {
	// Capacity is the maximum number of cached pages.
	Capacity int
	// NumShards controls lock striping inside sturdyc.
	NumShards int
	// TTL bounds how long a page may be served after it was computed.
	TTL time.Duration
	// EvictionPercentage is the share of entries dropped when Capacity is reached.
	EvictionPercentage int
}

// DefaultConfig mirrors the 60 second safety-net expiry of the catalog.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                60 * time.Second,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
