package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id, userID string) (*domain.Account, error)
	GetByIDTx(ctx context.Context, tx Transaction, id, userID string) (*domain.Account, error)
	// GetActiveForUpdate locks an owned, active account.
	GetActiveForUpdate(ctx context.Context, tx Transaction, id, userID string) (*domain.Account, error)
	// GetActiveByIDsForUpdate locks owned, active accounts in id order.
	GetActiveByIDsForUpdate(ctx context.Context, tx Transaction, ids []string, userID string) ([]*domain.Account, error)
	// IncrementBalance adds delta to the stored balance in place and returns
	// the new balance.
	IncrementBalance(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// CategoryRepository defines the category lookups the ledger needs.
type CategoryRepository interface {
	GetForOwner(ctx context.Context, tx Transaction, id, userID string, scope domain.CategoryScope) (*domain.Category, error)
	GetByName(ctx context.Context, tx Transaction, userID, name string) (*domain.Category, error)
	// Create inserts the category unless the user already has one with the
	// same name.
	Create(ctx context.Context, tx Transaction, category *domain.Category) error
}

// MovementRepository defines data access for movements.
type MovementRepository interface {
	Create(ctx context.Context, tx Transaction, movement *domain.Movement) error
	GetByID(ctx context.Context, id, userID string) (*domain.Movement, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id, userID string) (*domain.Movement, error)
	GetWithPairForUpdate(ctx context.Context, tx Transaction, id, userID string) ([]*domain.Movement, error)
	GetDetail(ctx context.Context, id, userID string) (*domain.MovementDetail, error)
	Update(ctx context.Context, tx Transaction, movement *domain.Movement) error
	SetPairID(ctx context.Context, tx Transaction, id, pairID string, updatedAt time.Time) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, userID string, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementDetail, error)
	Count(ctx context.Context, userID string, filter domain.MovementFilter) (int64, error)
	// Totals sums non-transfer inflows and outflows matching filter.
	Totals(ctx context.Context, userID string, filter domain.MovementFilter) (inflow, outflow decimal.Decimal, err error)
	// CategoryBreakdown groups non-transfer outflows in [from, to] by
	// category. Name, Icon and Color are empty for deleted categories.
	CategoryBreakdown(ctx context.Context, userID string, from, to time.Time) ([]domain.CategoryTotal, error)
	SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
