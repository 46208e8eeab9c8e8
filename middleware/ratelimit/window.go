package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"rento/middleware/ratelimit/application"
	"rento/middleware/ratelimit/domain"
)

// WindowOptions configures the per-caller fixed window of one action class.
type WindowOptions struct {
	Service application.WindowService
	Config  domain.Config
	// KeyFn returns the caller id. It normally reads the authenticated user set
	// by the auth middleware; the default keys by remote host.
	KeyFn KeyFunc
	Stats domain.StatsStore
	// AddHeaders sets the X-RateLimit-* headers on allowed responses too.
	AddHeaders bool
	// OnDenied is called after a 429 was written, for logging.
	OnDenied func(r *http.Request, key string, res domain.Result)
	Now      func() time.Time
}

// WindowMiddleware answers 429 once a caller spends the quota of the window.
func WindowMiddleware(opts WindowOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			res := opts.Service.Check(r.Context(), key, opts.Config)
			now := opts.Now()

			record(r, opts.Stats, domain.StatsEvent{
				Store:   opts.Config.StoreName,
				Key:     domain.Key(key),
				Allowed: res.Allowed,
				At:      now,
			})

			if !res.Allowed {
				setWindowHeaders(w.Header(), opts.Config, res)
				w.Header().Set("Retry-After", retryAfterSeconds(res.RetryAfter(now)))
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				if opts.OnDenied != nil {
					opts.OnDenied(r, key, res)
				}
				return
			}

			if opts.AddHeaders {
				setWindowHeaders(w.Header(), opts.Config, res)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setWindowHeaders(h http.Header, cfg domain.Config, res domain.Result) {
	h.Set("X-RateLimit-Limit", formatInt(cfg.MaxRequests))
	h.Set("X-RateLimit-Remaining", formatInt(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
