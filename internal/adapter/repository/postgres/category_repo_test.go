package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pocketledger/internal/domain"
)

func TestCategoryRepository_GetForOwner(t *testing.T) {
	pool := newMockPool(t)
	repo := NewCategoryRepository()
	tx := beginTx(t, pool)

	pool.ExpectQuery(`FROM categories\s+WHERE id = \$1 AND user_id = \$2 AND scope = \$3`).
		WithArgs("cat-food", "user-1", "expense").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "scope", "icon", "color"}).
			AddRow("cat-food", "user-1", "Comida", "expense", "utensils", "#F97316"))

	category, err := repo.GetForOwner(context.Background(), tx, "cat-food", "user-1", domain.CategoryScopeExpense)
	require.NoError(t, err)
	assert.Equal(t, "Comida", category.Name)
	assert.Equal(t, domain.CategoryScopeExpense, category.Scope)

	assertExpectations(t, pool)
}

func TestCategoryRepository_GetForOwner_WrongScopeIsNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewCategoryRepository()
	tx := beginTx(t, pool)

	pool.ExpectQuery(`FROM categories`).
		WithArgs("cat-habit", "user-1", "expense").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetForOwner(context.Background(), tx, "cat-habit", "user-1", domain.CategoryScopeExpense)
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCategoryRepository_CreateIgnoresDuplicateName(t *testing.T) {
	pool := newMockPool(t)
	repo := NewCategoryRepository()
	tx := beginTx(t, pool)

	pool.ExpectExec(`(?s)INSERT INTO categories.*ON CONFLICT \(user_id, name\) DO NOTHING`).
		WithArgs("cat-new", "user-1", domain.TransfersCategoryName, "expense",
			domain.TransfersCategoryIcon, domain.TransfersCategoryColor, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := repo.Create(context.Background(), tx, &domain.Category{
		ID:     "cat-new",
		UserID: "user-1",
		Name:   domain.TransfersCategoryName,
		Scope:  domain.CategoryScopeExpense,
		Icon:   domain.TransfersCategoryIcon,
		Color:  domain.TransfersCategoryColor,
	})
	require.NoError(t, err)

	assertExpectations(t, pool)
}
