// Package config loads the Rento runtime configuration.
package config

import (
	"fmt"
	"time"

	"rento/middleware/ratelimit/domain"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"

	StatsBucketMinute = "minute"
	StatsBucketNone   = "none"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

func (a AppConfig) IsDevelopment() bool { return a.Environment == EnvDevelopment }

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustXForwardedFor keys the edge throttle by the first X-Forwarded-For
	// hop. Enable only behind a proxy that sets it.
	TrustXForwardedFor bool `mapstructure:"trust_x_forwarded_for"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogQueries   bool   `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix namespaces every key written by this service.
	Prefix string `mapstructure:"prefix"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type PolicyConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type EdgeConfig struct {
	RPS     float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type ConcurrencyConfig struct {
	Max            int           `mapstructure:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type RateLimitConfig struct {
	// Backend of the fixed window counters: memory or redis.
	Backend          string  `mapstructure:"backend"`
	SweepProbability float64 `mapstructure:"sweep_probability"`
	// Stats sink besides Prometheus: memory, redis or none.
	Stats string `mapstructure:"stats"`
	// StatsTTL expires redis minute buckets and per-key hashes.
	StatsTTL       time.Duration `mapstructure:"stats_ttl"`
	StatsBucket    string        `mapstructure:"stats_bucket"`
	StatsTrackKeys bool          `mapstructure:"stats_track_keys"`

	AddHeaders  bool                    `mapstructure:"add_headers"`
	Policies    map[string]PolicyConfig `mapstructure:"policies"`
	Edge        EdgeConfig              `mapstructure:"edge"`
	Concurrency ConcurrencyConfig       `mapstructure:"concurrency"`
}

// Policy returns the quota of an action class, falling back to the built-in
// default for classes the configuration does not mention.
func (r RateLimitConfig) Policy(store string) domain.Config {
	def := domain.DefaultPolicies()[store]
	p, ok := r.Policies[store]
	if !ok {
		return def
	}
	return domain.Config{MaxRequests: p.MaxRequests, Window: p.Window, StoreName: store}
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	switch c.RateLimit.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("ratelimit.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimit.Backend)
	}
	switch c.RateLimit.Stats {
	case BackendMemory, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("ratelimit.stats must be memory, redis or none, got %q", c.RateLimit.Stats)
	}
	switch c.RateLimit.StatsBucket {
	case "", StatsBucketMinute, StatsBucketNone:
	default:
		return fmt.Errorf("ratelimit.stats_bucket must be minute or none, got %q", c.RateLimit.StatsBucket)
	}
	if c.RateLimit.StatsTTL < 0 {
		return fmt.Errorf("ratelimit.stats_ttl must not be negative")
	}
	if (c.RateLimit.Backend == BackendRedis || c.RateLimit.Stats == BackendRedis) && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when ratelimit uses redis")
	}
	if p := c.RateLimit.SweepProbability; p < 0 || p > 1 {
		return fmt.Errorf("ratelimit.sweep_probability must be within [0,1], got %v", p)
	}
	for name, p := range c.RateLimit.Policies {
		if p.MaxRequests <= 0 {
			return fmt.Errorf("ratelimit.policies.%s.max_requests must be positive", name)
		}
		if p.Window <= 0 {
			return fmt.Errorf("ratelimit.policies.%s.window must be positive", name)
		}
	}
	if c.RateLimit.Edge.RPS < 0 || c.RateLimit.Edge.Burst < 0 {
		return fmt.Errorf("ratelimit.edge rps and burst must not be negative")
	}

	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
