package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"rento/middleware/ratelimit/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RENTO_HTTP_ADDR.
const EnvPrefix = "RENTO"

// devSigningKey is only ever used when app.environment is development and no
// key was configured.
const devSigningKey = "rento-development-signing-key"

// Load reads, in increasing priority: built-in defaults, a YAML file (path, or
// config.yaml in . and ./configs when path is empty), a .env file, and RENTO_*
// environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := bindPolicyEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	policiesFromViper(v, &cfg.RateLimit)

	if cfg.Auth.SigningKey == "" && cfg.App.IsDevelopment() {
		cfg.Auth.SigningKey = devSigningKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// bindPolicyEnv binds the per-class quota keys explicitly. Unmarshal into the
// policies map does not consult AutomaticEnv for nested map entries.
func bindPolicyEnv(v *viper.Viper) error {
	for name := range domain.DefaultPolicies() {
		for _, field := range []string{"max_requests", "window"} {
			key := "ratelimit.policies." + name + "." + field
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}
	}
	return nil
}

// policiesFromViper rebuilds the known classes from single-key lookups, which
// see file, env and default values in priority order.
func policiesFromViper(v *viper.Viper, rl *RateLimitConfig) {
	if rl.Policies == nil {
		rl.Policies = make(map[string]PolicyConfig)
	}
	for name := range domain.DefaultPolicies() {
		prefix := "ratelimit.policies." + name + "."
		rl.Policies[name] = PolicyConfig{
			MaxRequests: v.GetInt(prefix + "max_requests"),
			Window:      v.GetDuration(prefix + "window"),
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rento")
	v.SetDefault("app.environment", EnvDevelopment)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.trust_x_forwarded_for", false)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "file:rento.db?_foreign_keys=on")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rento")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "rento")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.backend", BackendMemory)
	v.SetDefault("ratelimit.sweep_probability", 0.01)
	v.SetDefault("ratelimit.stats", BackendNone)
	v.SetDefault("ratelimit.stats_ttl", 24*time.Hour)
	v.SetDefault("ratelimit.stats_bucket", StatsBucketMinute)
	v.SetDefault("ratelimit.stats_track_keys", false)
	v.SetDefault("ratelimit.add_headers", false)
	for name, p := range domain.DefaultPolicies() {
		v.SetDefault("ratelimit.policies."+name+".max_requests", p.MaxRequests)
		v.SetDefault("ratelimit.policies."+name+".window", p.Window)
	}
	v.SetDefault("ratelimit.edge.rps", 20.0)
	v.SetDefault("ratelimit.edge.burst", 40)
	v.SetDefault("ratelimit.edge.idle_ttl", 15*time.Minute)
	v.SetDefault("ratelimit.concurrency.max", 64)
	v.SetDefault("ratelimit.concurrency.acquire_timeout", 2*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
