package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pocketledger/internal/domain"
)

var accountCols = []string{"id", "user_id", "name", "currency", "balance", "active", "created_at", "updated_at"}

func accountRow(rows *pgxmock.Rows, id, balance string) *pgxmock.Rows {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "user-1", "Wallet "+id, "ARS", decimalToNumeric(decimal.RequireFromString(balance)), true, now, now)
}

func TestAccountRepository_GetByID(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)

	pool.ExpectQuery(`SELECT .* FROM accounts\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs("acc-1", "user-1").
		WillReturnRows(accountRow(pgxmock.NewRows(accountCols), "acc-1", "150.25"))

	account, err := repo.GetByID(context.Background(), "acc-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, "ARS", account.Currency)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("150.25")), "balance %s", account.Balance)
	assert.True(t, account.Active)

	assertExpectations(t, pool)
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)

	pool.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs("missing", "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountRepository_GetActiveByIDsForUpdate(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)
	tx := beginTx(t, pool)

	rows := pgxmock.NewRows(accountCols)
	accountRow(rows, "acc-a", "10")
	accountRow(rows, "acc-b", "20")

	pool.ExpectQuery(`WHERE id = ANY\(\$1\) AND user_id = \$2 AND active\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs([]string{"acc-a", "acc-b"}, "user-1").
		WillReturnRows(rows)

	accounts, err := repo.GetActiveByIDsForUpdate(context.Background(), tx, []string{"acc-a", "acc-b"}, "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-a", accounts[0].ID)
	assert.Equal(t, "acc-b", accounts[1].ID)

	assertExpectations(t, pool)
}

func TestAccountRepository_IncrementBalance(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)
	tx := beginTx(t, pool)

	pool.ExpectQuery(`UPDATE accounts\s+SET balance = balance \+ \$2`).
		WithArgs("acc-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimalToNumeric(decimal.RequireFromString("70.50"))))

	balance, err := repo.IncrementBalance(context.Background(), tx, "acc-1", decimal.RequireFromString("-29.50"), time.Now())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("70.50")), "balance %s", balance)

	assertExpectations(t, pool)
}

func TestAccountRepository_IncrementBalance_MissingAccount(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)
	tx := beginTx(t, pool)

	pool.ExpectQuery(`UPDATE accounts`).
		WithArgs("gone", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.IncrementBalance(context.Background(), tx, "gone", decimal.NewFromInt(1), time.Now())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestNumericConversion(t *testing.T) {
	for _, v := range []string{"0", "0.01", "-12.5", "123456789.1234"} {
		d := decimal.RequireFromString(v)
		got := numericToDecimal(decimalToNumeric(d))
		assert.True(t, got.Equal(d), "round trip of %s gave %s", v, got)
	}

	assert.True(t, numericToDecimal(decimalToNumeric(decimal.Zero)).IsZero())
}
