// Package ratelimit holds the net/http adapters of the limiter.
//
// Layers:
//
//   - domain: contracts and value types, no net/http
//   - application: decisions (fixed window, edge throttle, in-flight slots)
//   - infra: memory and Redis stores, token buckets, semaphore, stats sinks
//   - ratelimit (this package): key extraction and translation of a decision to
//     status codes and headers
//
// The API mounts Middleware (per-IP token bucket) in front of every route,
// WindowMiddleware (per caller, per action class) behind auth, and
// ConcurrencyMiddleware on writes.
package ratelimit
