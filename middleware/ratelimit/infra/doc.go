// Package infra holds the concrete implementations of the domain contracts.
//
//   - MemoryWindowStore / RedisWindowStore: fixed window counters per action class
//   - TokenBucketStore: per-IP token bucket (golang.org/x/time/rate) for the edge throttle
//   - ChanPool: channel semaphore bounding in-flight writes
//   - MemoryStatsStore / RedisStatsStore / PrometheusStats: decision statistics
package infra
