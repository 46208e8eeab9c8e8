package domain

import "time"

// Action classes guarding the write endpoints.
const (
	StoreMessages     = "messages"
	StoreApplications = "applications"
	StoreTours        = "tours"
	StoreFavorites    = "favorites"
)

// DefaultPolicies returns the per-minute quotas of each action class.
func DefaultPolicies() map[string]Config {
	return map[string]Config{
		StoreMessages:     {MaxRequests: 10, Window: time.Minute, StoreName: StoreMessages},
		StoreApplications: {MaxRequests: 5, Window: time.Minute, StoreName: StoreApplications},
		StoreTours:        {MaxRequests: 5, Window: time.Minute, StoreName: StoreTours},
		StoreFavorites:    {MaxRequests: 20, Window: time.Minute, StoreName: StoreFavorites},
	}
}
