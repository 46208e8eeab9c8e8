// Package domain defines the rate limiting contracts and value types.
//
// Nothing here depends on net/http or on a concrete store, so the decision
// rules can be unit tested in isolation and the stores swapped (memory for a
// single process, Redis when several instances share quotas).
package domain
