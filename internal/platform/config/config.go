// Package config loads engine configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	Chain         ChainConfig         `mapstructure:"chain"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Cache         CacheConfig         `mapstructure:"cache"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ChainConfig holds RPC endpoints and well-known contract addresses.
type ChainConfig struct {
	RPCEndpoints   []string      `mapstructure:"rpc_endpoints"`
	ChainID        int64         `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	V2Factory     string `mapstructure:"v2_factory"`
	V3Factory     string `mapstructure:"v3_factory"`
	V3Quoter      string `mapstructure:"v3_quoter"`
	SwapRouter    string `mapstructure:"swap_router"` // spender of swap allowances
	WrappedNative string `mapstructure:"wrapped_native"`
}

// EngineConfig tunes the quoting orchestrator.
type EngineConfig struct {
	DebounceWindow      time.Duration `mapstructure:"debounce_window"`
	DefaultSlippageBPS  int64         `mapstructure:"default_slippage_bps"`
	GasSafetyMultiplier float64       `mapstructure:"gas_safety_multiplier"`
	MaxConcurrentTiers  int64         `mapstructure:"max_concurrent_tiers"`
}

// CacheConfig configures the local and optional Redis layers.
type CacheConfig struct {
	MemoryMaxItems int           `mapstructure:"memory_max_items"`
	GasPriceTTL    time.Duration `mapstructure:"gas_price_ttl"`

	RedisEnabled  bool   `mapstructure:"redis_enabled"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// Load reads configuration from the given file (optional) and the
// QUOTER_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.rpc_endpoints", []string{"http://localhost:8545"})
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.request_timeout", 10*time.Second)

	// Contract addresses have no defaults but the keys must be
	// registered for env overrides to bind.
	v.SetDefault("chain.v2_factory", "")
	v.SetDefault("chain.v3_factory", "")
	v.SetDefault("chain.v3_quoter", "")
	v.SetDefault("chain.swap_router", "")
	v.SetDefault("chain.wrapped_native", "")

	v.SetDefault("engine.debounce_window", 500*time.Millisecond)
	v.SetDefault("engine.default_slippage_bps", 50)
	v.SetDefault("engine.gas_safety_multiplier", 1.2)
	v.SetDefault("engine.max_concurrent_tiers", 4)

	v.SetDefault("cache.memory_max_items", 4096)
	v.SetDefault("cache.gas_price_ttl", 12*time.Second)
	v.SetDefault("cache.redis_enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "quoter:")

	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)

	v.SetDefault("observability.service_name", "dex-swap-engine")
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.metrics_enabled", true)
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Chain.RPCEndpoints) == 0 {
		return fmt.Errorf("chain.rpc_endpoints must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain.chain_id must be positive, got %d", c.Chain.ChainID)
	}
	if c.Engine.DebounceWindow <= 0 {
		return fmt.Errorf("engine.debounce_window must be positive, got %s", c.Engine.DebounceWindow)
	}
	if c.Engine.DefaultSlippageBPS < 0 || c.Engine.DefaultSlippageBPS > 10000 {
		return fmt.Errorf("engine.default_slippage_bps must be in [0, 10000], got %d", c.Engine.DefaultSlippageBPS)
	}
	if c.Engine.GasSafetyMultiplier < 1.0 {
		return fmt.Errorf("engine.gas_safety_multiplier must be >= 1.0, got %g", c.Engine.GasSafetyMultiplier)
	}
	if c.Engine.MaxConcurrentTiers <= 0 {
		return fmt.Errorf("engine.max_concurrent_tiers must be positive, got %d", c.Engine.MaxConcurrentTiers)
	}
	if c.Cache.RedisEnabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr required when redis is enabled")
	}
	return nil
}
