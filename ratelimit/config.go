/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/acronis/go-ratelimit/config"
	"github.com/acronis/go-ratelimit/log"
)

// Rate-limiting algorithms.
const (
	AlgTokenBucket   = "token_bucket"
	AlgLeakyBucket   = "leaky_bucket"
	AlgSlidingWindow = "sliding_window"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyAlg     = "alg"
	cfgKeyRate    = "rate"
	cfgKeyBurst   = "burst"
	cfgKeyMaxKeys = "maxKeys"
	cfgKeyIdleTTL = "idleTTL"
	cfgKeyDryRun  = "dryRun"
)

// Config represents a set of configuration parameters for a per-key rate limiter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Alg is the rate limiting algorithm: token_bucket, leaky_bucket, or sliding_window.
	Alg string `mapstructure:"alg" yaml:"alg" json:"alg"`

	// Rate is the sustained per-key rate in the "N/(s|m|h)" form, for example "100/m".
	Rate Rate `mapstructure:"rate" yaml:"rate" json:"rate"`

	// Burst is the per-key burst size. For the token bucket algorithm it is
	// the bucket capacity and defaults to Rate.Count; for the leaky bucket
	// algorithm it is the allowed deviation from the smoothed rate;
	// the sliding window algorithm ignores it.
	Burst int `mapstructure:"burst" yaml:"burst" json:"burst"`

	// MaxKeys bounds the number of tracked keys with LRU eviction.
	// Zero keeps the key registry unbounded.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	// IdleTTL drops the state of keys idle for the given duration.
	// Zero keeps idle keys forever. The leaky bucket algorithm ignores it.
	IdleTTL time.Duration `mapstructure:"idleTTL" yaml:"idleTTL" json:"idleTTL"`

	// DryRun makes the limiter report would-be rejections without enforcing them.
	DryRun bool `mapstructure:"dryRun" yaml:"dryRun" json:"dryRun"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the rate limiter in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAlg, AlgTokenBucket)
}

// Set sets rate limiter configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := dp.Unmarshal(c, func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.DecodeHook = MapstructureDecodeHook()
	}); err != nil {
		return err
	}
	return c.Validate()
}

// Validate validates configuration.
func (c *Config) Validate() error {
	switch c.Alg {
	case "", AlgTokenBucket, AlgLeakyBucket, AlgSlidingWindow:
	default:
		return fmt.Errorf("%w: unknown rate limit alg %q", ErrInvalidConfiguration, c.Alg)
	}
	if c.Rate.Count <= 0 || c.Rate.Duration <= 0 {
		return fmt.Errorf("%w: rate must be positive, got %q", ErrInvalidConfiguration, c.Rate)
	}
	if c.Burst < 0 {
		return fmt.Errorf("%w: burst must not be negative, got %d", ErrInvalidConfiguration, c.Burst)
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("%w: max keys must not be negative, got %d", ErrInvalidConfiguration, c.MaxKeys)
	}
	if c.IdleTTL < 0 {
		return fmt.Errorf("%w: idle TTL must not be negative, got %s", ErrInvalidConfiguration, c.IdleTTL)
	}
	return nil
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// FactoryOpts represents collaborators for a limiter made by NewLimiterFromConfig.
type FactoryOpts struct {
	// Logger is used to log would-be rejections in dry-run mode. May be nil.
	Logger log.FieldLogger

	// MetricsCollector gathers decisions and key set statistics. May be nil.
	MetricsCollector MetricsCollector
}

// NewLimiterFromConfig creates a new rate limiter of the configured algorithm.
func NewLimiterFromConfig(cfg *Config) (Limiter, error) {
	return NewLimiterFromConfigWithOpts(cfg, FactoryOpts{})
}

// NewLimiterFromConfigWithOpts creates a new rate limiter of the configured algorithm
// with the provided collaborators.
func NewLimiterFromConfigWithOpts(cfg *Config, opts FactoryOpts) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Alg {
	case AlgLeakyBucket:
		return NewLeakyBucketLimiterWithOpts(cfg.Rate, cfg.Burst, LeakyBucketLimiterOpts{
			MaxKeys:          cfg.MaxKeys,
			DryRun:           cfg.DryRun,
			Logger:           opts.Logger,
			MetricsCollector: opts.MetricsCollector,
		})
	case AlgSlidingWindow:
		return NewSlidingWindowLimiterWithOpts(cfg.Rate, SlidingWindowLimiterOpts{
			MaxKeys:          cfg.MaxKeys,
			IdleTTL:          cfg.IdleTTL,
			DryRun:           cfg.DryRun,
			Logger:           opts.Logger,
			MetricsCollector: opts.MetricsCollector,
		})
	default: // AlgTokenBucket or empty
		capacity := cfg.Burst
		if capacity == 0 {
			capacity = cfg.Rate.Count
		}
		return NewTokenBucketLimiterWithOpts(capacity, cfg.Rate.PerSecond(), TokenBucketLimiterOpts{
			MaxKeys:          cfg.MaxKeys,
			IdleTTL:          cfg.IdleTTL,
			DryRun:           cfg.DryRun,
			Logger:           opts.Logger,
			MetricsCollector: opts.MetricsCollector,
		})
	}
}
