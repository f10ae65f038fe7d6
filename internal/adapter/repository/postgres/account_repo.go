package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

const accountColumns = `id, user_id, name, currency, balance, active, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID,
		account.UserID,
		account.Name,
		account.Currency,
		decimalToNumeric(account.Balance),
		account.Active,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account owned by userID.
func (r *AccountRepository) GetByID(ctx context.Context, id, userID string) (*domain.Account, error) {
	return getAccount(ctx, r.db, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = $1 AND user_id = $2`, id, userID)
}

// GetByIDTx retrieves an account owned by userID inside tx.
func (r *AccountRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id, userID string) (*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return getAccount(ctx, q, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = $1 AND user_id = $2`, id, userID)
}

// GetActiveForUpdate retrieves an owned, active account with a FOR UPDATE lock.
func (r *AccountRepository) GetActiveForUpdate(ctx context.Context, tx usecase.Transaction, id, userID string) (*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return getAccount(ctx, q, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = $1 AND user_id = $2 AND active
		FOR UPDATE`, id, userID)
}

// GetActiveByIDsForUpdate locks the owned, active accounts among ids in id
// order. Missing ids are simply absent from the result.
func (r *AccountRepository) GetActiveByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string, userID string) ([]*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = ANY($1) AND user_id = $2 AND active
		ORDER BY id
		FOR UPDATE`, ids, userID)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// IncrementBalance adds delta to the stored balance and returns the result.
func (r *AccountRepository) IncrementBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return decimal.Zero, err
	}

	var balance pgtype.Numeric

	err = q.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1
		RETURNING balance`,
		id, decimalToNumeric(delta), timeToPgTimestamptz(updatedAt),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrAccountNotFound
		}

		return decimal.Zero, err
	}

	return numericToDecimal(balance), nil
}

// List lists accounts of every user with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		ORDER BY id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

func getAccount(ctx context.Context, q querier, sql string, args ...any) (*domain.Account, error) {
	account, err := scanAccount(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		balance pgtype.Numeric
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Currency,
		&balance,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Balance = numericToDecimal(balance)

	return &a, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
