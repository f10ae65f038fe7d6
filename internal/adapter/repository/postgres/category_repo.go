package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

const categoryColumns = `id, user_id, name, scope, icon, color`

// CategoryRepository implements usecase.CategoryRepository.
type CategoryRepository struct{}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

// GetForOwner retrieves a category of the given scope owned by userID.
func (r *CategoryRepository) GetForOwner(ctx context.Context, tx usecase.Transaction, id, userID string, scope domain.CategoryScope) (*domain.Category, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return getCategory(ctx, q, `
		SELECT `+categoryColumns+` FROM categories
		WHERE id = $1 AND user_id = $2 AND scope = $3`, id, userID, string(scope))
}

// GetByName retrieves the user's category with the given name.
func (r *CategoryRepository) GetByName(ctx context.Context, tx usecase.Transaction, userID, name string) (*domain.Category, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return getCategory(ctx, q, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = $1 AND name = $2`, userID, name)
}

// Create inserts the category unless the user already has one with the
// same name.
func (r *CategoryRepository) Create(ctx context.Context, tx usecase.Transaction, category *domain.Category) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO categories (`+categoryColumns+`, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, name) DO NOTHING`,
		category.ID,
		category.UserID,
		category.Name,
		string(category.Scope),
		category.Icon,
		category.Color,
		timeToPgTimestamptz(time.Now().UTC()),
	)

	return err
}

func getCategory(ctx context.Context, q querier, sql string, args ...any) (*domain.Category, error) {
	var (
		c     domain.Category
		scope string
	)

	err := q.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.UserID, &c.Name, &scope, &c.Icon, &c.Color)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}

		return nil, err
	}

	c.Scope = domain.CategoryScope(scope)

	return &c, nil
}
