package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's money container. Balance is a cache of the signed sum
// of the account's movements and is only ever changed by balance deltas.
type Account struct {
	ID        string
	UserID    string
	Name      string
	Currency  string
	Balance   decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether the cached balance is at least amount.
func (a *Account) Covers(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Summary returns the compact view attached to movements.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:       a.ID,
		Name:     a.Name,
		Currency: a.Currency,
		Balance:  a.Balance,
	}
}

// AccountSummary is the account data joined onto movements.
type AccountSummary struct {
	ID       string
	Name     string
	Currency string
	Balance  decimal.Decimal
}
