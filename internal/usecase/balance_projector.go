package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
)

// balanceProjector is the only writer of cached account balances.
type balanceProjector struct {
	accountRepo AccountRepository
}

func newBalanceProjector(accountRepo AccountRepository) *balanceProjector {
	return &balanceProjector{accountRepo: accountRepo}
}

// applyDelta adds delta to the account's cached balance inside tx and
// returns the resulting balance. A vanished account means the caller's
// validation and this write disagree, which is an integrity fault.
func (p *balanceProjector) applyDelta(ctx context.Context, tx Transaction, accountID string, delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	balance, err := p.accountRepo.IncrementBalance(ctx, tx, accountID, delta, now)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return decimal.Zero, fmt.Errorf("%w: account %s: %w", domain.ErrBalanceTargetGone, accountID, err)
		}
		return decimal.Zero, err
	}

	return balance, nil
}

// apply applies a movement's own contribution.
func (p *balanceProjector) apply(ctx context.Context, tx Transaction, m *domain.Movement, now time.Time) (decimal.Decimal, error) {
	return p.applyDelta(ctx, tx, m.AccountID, m.SignedAmount(), now)
}

// reverse undoes a movement's own contribution.
func (p *balanceProjector) reverse(ctx context.Context, tx Transaction, m *domain.Movement, now time.Time) (decimal.Decimal, error) {
	return p.applyDelta(ctx, tx, m.AccountID, m.SignedAmount().Neg(), now)
}
