package infra

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"rento/middleware/ratelimit/domain"
)

// DefaultSweepProbability is the share of calls that also sweep expired records.
const DefaultSweepProbability = 0.01

// MemoryWindowStore is a process-local fixed window counter. Each store name
// gets its own map, created on first use. Counters reset on restart and are not
// shared between instances; use RedisWindowStore for that.
type MemoryWindowStore struct {
	mu     sync.Mutex
	stores map[string]map[domain.Key]*windowRecord

	now       func() time.Time
	random    func() float64
	sweepProb float64
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.now = now }
}

// WithSweep sets the sweep probability and the random source in [0,1).
// A nil random keeps the default source.
func WithSweep(probability float64, random func() float64) MemoryWindowOption {
	return func(s *MemoryWindowStore) {
		s.sweepProb = probability
		if random != nil {
			s.random = random
		}
	}
}

func NewMemoryWindowStore(opts ...MemoryWindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		stores:    make(map[string]map[domain.Key]*windowRecord),
		now:       time.Now,
		random:    rand.Float64,
		sweepProb: DefaultSweepProbability,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit implements domain.WindowStore. It never fails.
func (s *MemoryWindowStore) Hit(_ context.Context, key domain.Key, cfg domain.Config) (domain.Result, error) {
	return s.Check(string(key), cfg), nil
}

// Check counts one call of callerID against cfg.
func (s *MemoryWindowStore) Check(callerID string, cfg domain.Config) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.sweepProb > 0 && s.random() < s.sweepProb {
		s.sweepLocked(now)
	}

	records, ok := s.stores[cfg.StoreName]
	if !ok {
		records = make(map[domain.Key]*windowRecord)
		s.stores[cfg.StoreName] = records
	}

	key := domain.Key(callerID)
	rec, ok := records[key]
	if !ok || now.After(rec.resetAt) {
		rec = &windowRecord{count: 1, resetAt: now.Add(cfg.Window)}
		records[key] = rec
		return domain.Result{Allowed: true, Remaining: max(cfg.MaxRequests-1, 0), ResetAt: rec.resetAt}
	}

	if rec.count >= cfg.MaxRequests {
		return domain.Result{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}
	}

	rec.count++
	return domain.Result{Allowed: true, Remaining: cfg.MaxRequests - rec.count, ResetAt: rec.resetAt}
}

// Sweep removes every record whose window has passed.
func (s *MemoryWindowStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *MemoryWindowStore) sweepLocked(now time.Time) {
	for _, records := range s.stores {
		for k, rec := range records {
			if now.After(rec.resetAt) {
				delete(records, k)
			}
		}
	}
}

// Len is the number of live records in a store.
func (s *MemoryWindowStore) Len(storeName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores[storeName])
}
