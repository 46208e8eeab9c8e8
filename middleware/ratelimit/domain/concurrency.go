package domain

import "context"

// SlotPool is a resource with finite capacity (in-flight writes).
//
// Acquire blocks until a slot is free or ctx is done. The returned release must
// be called exactly once.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
