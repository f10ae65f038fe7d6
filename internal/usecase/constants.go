package usecase

import "time"

const (
	// DefaultBreakdownCacheTTL bounds how long a monthly category breakdown
	// may be served from cache.
	DefaultBreakdownCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotent responses are replayed when
	// no TTL is configured.
	IdempotencyKeyTTL = 24 * time.Hour

	// MaxReconcileAccounts caps a single reconciliation run.
	MaxReconcileAccounts = 10000
)
