package main

import (
	"context"
	"fmt"
	"time"

	"rento/config"
	"rento/middleware/ratelimit/domain"
	"rento/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// limiters are the rate limit backends selected by configuration.
type limiters struct {
	Windows  domain.WindowStore
	Policies map[string]domain.Config
	Edge     domain.LimiterStore
	Stats    domain.StatsStore

	closers []func() error
}

func (l *limiters) Close() {
	for _, c := range l.closers {
		_ = c()
	}
}

func buildLimiters(ctx context.Context, cfg *config.Config, log *zap.Logger) (*limiters, error) {
	rl := cfg.RateLimit
	l := &limiters{Policies: make(map[string]domain.Config)}
	for name := range domain.DefaultPolicies() {
		l.Policies[name] = rl.Policy(name)
	}

	var rdb *redis.Client
	if rl.Backend == config.BackendRedis || rl.Stats == config.BackendRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		l.closers = append(l.closers, rdb.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// the limiter is best-effort: keep serving and fail open per request
			log.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Address), zap.Error(err))
		}
	}

	switch rl.Backend {
	case config.BackendRedis:
		l.Windows = infra.NewRedisWindowStore(rdb, infra.WithWindowPrefix(cfg.Redis.Prefix+":ratelimit:window"))
	case config.BackendMemory:
		l.Windows = infra.NewMemoryWindowStore(infra.WithSweep(rl.SweepProbability, nil))
	default:
		l.Close()
		return nil, fmt.Errorf("unknown ratelimit backend %q", rl.Backend)
	}

	switch rl.Stats {
	case config.BackendRedis:
		opts := []infra.RedisStatsOption{
			infra.WithStatsPrefix(cfg.Redis.Prefix + ":ratelimit:stats"),
			infra.WithStatsTrackKeys(rl.StatsTrackKeys),
		}
		if rl.StatsTTL > 0 {
			opts = append(opts, infra.WithStatsTTL(rl.StatsTTL))
		}
		if rl.StatsBucket != "" {
			opts = append(opts, infra.WithStatsBucket(rl.StatsBucket))
		}
		l.Stats = infra.NewRedisStatsStore(rdb, opts...)
	case config.BackendMemory:
		l.Stats = infra.NewMemoryStatsStore(infra.WithTrackKeys(rl.StatsTrackKeys))
	}

	if rl.Edge.RPS > 0 && rl.Edge.Burst > 0 {
		edge := infra.NewTokenBucketStore(rl.Edge.RPS, rl.Edge.Burst, infra.WithIdleTTL(rl.Edge.IdleTTL))
		edge.StartJanitor(ctx)
		l.Edge = edge
	}
	return l, nil
}
