// Package application holds the rate limit use cases. It depends only on the
// domain package and knows nothing about net/http:
//
//   - WindowService.Check: fixed window quota per (action class, caller)
//   - Service.Decide: edge token bucket allow/deny + retry-after
//   - ConcurrencyService.Acquire: in-flight slot with timeout
package application
