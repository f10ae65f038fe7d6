package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

const movementColumns = `m.id, m.user_id, m.account_id, m.direction, m.category_id, m.amount,
	m.concept, m.notes, m.occurred_at, m.is_transfer, m.counter_account_id, m.pair_id,
	m.created_at, m.updated_at`

const detailSelect = `
	SELECT ` + movementColumns + `,
		a.name, a.currency, a.balance,
		c.id, c.name, c.icon, c.color,
		p.id, p.account_id, p.direction
	FROM movements m
	JOIN accounts a ON a.id = m.account_id
	LEFT JOIN categories c ON c.id = m.category_id AND c.user_id = m.user_id
	LEFT JOIN movements p ON p.id = m.pair_id`

// MovementRepository implements usecase.MovementRepository.
type MovementRepository struct {
	db querier
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(db DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create inserts a movement.
func (r *MovementRepository) Create(ctx context.Context, tx usecase.Transaction, m *domain.Movement) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	counter, pair := transferColumns(m)

	_, err = q.Exec(ctx, `
		INSERT INTO movements (
			id, user_id, account_id, direction, category_id, amount,
			concept, notes, occurred_at, is_transfer, counter_account_id, pair_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID,
		m.UserID,
		m.AccountID,
		string(m.Direction),
		m.CategoryID,
		decimalToNumeric(m.Amount),
		m.Concept,
		m.Notes,
		timeToPgTimestamptz(m.OccurredAt),
		m.IsTransfer(),
		counter,
		pair,
		timeToPgTimestamptz(m.CreatedAt),
		timeToPgTimestamptz(m.UpdatedAt),
	)

	return err
}

// GetByID retrieves a movement owned by userID.
func (r *MovementRepository) GetByID(ctx context.Context, id, userID string) (*domain.Movement, error) {
	return getMovement(ctx, r.db, `
		SELECT `+movementColumns+` FROM movements m
		WHERE m.id = $1 AND m.user_id = $2`, id, userID)
}

// GetByIDForUpdate retrieves a movement owned by userID with a FOR UPDATE lock.
func (r *MovementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id, userID string) (*domain.Movement, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return getMovement(ctx, q, `
		SELECT `+movementColumns+` FROM movements m
		WHERE m.id = $1 AND m.user_id = $2
		FOR UPDATE`, id, userID)
}

// GetWithPairForUpdate locks the movement owned by userID together with
// its transfer pair. Rows are locked in id order so that concurrent edits of
// either leg queue on the same row first. A missing id yields no rows.
func (r *MovementRepository) GetWithPairForUpdate(ctx context.Context, tx usecase.Transaction, id, userID string) ([]*domain.Movement, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+movementColumns+` FROM movements m
		WHERE m.user_id = $2 AND (m.id = $1 OR m.id = (
			SELECT pair_id FROM movements WHERE id = $1 AND user_id = $2))
		ORDER BY m.id
		FOR UPDATE`, id, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		var row movementRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, err
		}
		movements = append(movements, row.movement())
	}

	return movements, rows.Err()
}

// GetDetail retrieves a movement joined with its account, category and pair.
func (r *MovementRepository) GetDetail(ctx context.Context, id, userID string) (*domain.MovementDetail, error) {
	detail, err := scanDetail(r.db.QueryRow(ctx, detailSelect+`
		WHERE m.id = $1 AND m.user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
		}

		return nil, err
	}

	return detail, nil
}

// Update rewrites the editable fields of a movement.
func (r *MovementRepository) Update(ctx context.Context, tx usecase.Transaction, m *domain.Movement) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE movements
		SET category_id = $2, amount = $3, concept = $4, notes = $5,
			occurred_at = $6, updated_at = $7
		WHERE id = $1`,
		m.ID,
		m.CategoryID,
		decimalToNumeric(m.Amount),
		m.Concept,
		m.Notes,
		timeToPgTimestamptz(m.OccurredAt),
		timeToPgTimestamptz(m.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMovementNotFound, m.ID)
	}

	return nil
}

// SetPairID links a transfer leg to its opposite leg.
func (r *MovementRepository) SetPairID(ctx context.Context, tx usecase.Transaction, id, pairID string, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE movements SET pair_id = $2, updated_at = $3
		WHERE id = $1 AND is_transfer`,
		id, pairID, timeToPgTimestamptz(updatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
	}

	return nil
}

// Delete removes a movement.
func (r *MovementRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
	}

	return nil
}

// List returns one page of the user's movements, newest first.
func (r *MovementRepository) List(ctx context.Context, userID string, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementDetail, error) {
	w := newWhere(userID, filter)

	sql := detailSelect + w.clause() + fmt.Sprintf(`
		ORDER BY m.occurred_at DESC, m.created_at DESC, m.id DESC
		LIMIT %s OFFSET %s`, w.arg(limit), w.arg(offset))

	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []*domain.MovementDetail

	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}

		details = append(details, detail)
	}

	return details, rows.Err()
}

// Count returns how many of the user's movements match filter.
func (r *MovementRepository) Count(ctx context.Context, userID string, filter domain.MovementFilter) (int64, error) {
	w := newWhere(userID, filter)

	var total int64

	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movements m`+w.clause(), w.args...).Scan(&total)

	return total, err
}

// Totals sums non-transfer inflows and outflows matching filter.
func (r *MovementRepository) Totals(ctx context.Context, userID string, filter domain.MovementFilter) (decimal.Decimal, decimal.Decimal, error) {
	w := newWhere(userID, filter)
	w.conds = append(w.conds, `NOT m.is_transfer`)

	var inflow, outflow pgtype.Numeric

	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(m.amount) FILTER (WHERE m.direction = 'inflow'), 0),
			COALESCE(SUM(m.amount) FILTER (WHERE m.direction = 'outflow'), 0)
		FROM movements m`+w.clause(), w.args...).Scan(&inflow, &outflow)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(inflow), numericToDecimal(outflow), nil
}

// CategoryBreakdown groups non-transfer outflows in [from, to] by category.
func (r *MovementRepository) CategoryBreakdown(ctx context.Context, userID string, from, to time.Time) ([]domain.CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.category_id,
			COALESCE(c.name, ''), COALESCE(c.icon, ''), COALESCE(c.color, ''),
			SUM(m.amount), COUNT(*)
		FROM movements m
		LEFT JOIN categories c ON c.id = m.category_id AND c.user_id = m.user_id
		WHERE m.user_id = $1
			AND m.direction = 'outflow'
			AND NOT m.is_transfer
			AND m.occurred_at >= $2 AND m.occurred_at <= $3
		GROUP BY m.category_id, c.name, c.icon, c.color`,
		userID, timeToPgTimestamptz(from), timeToPgTimestamptz(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.CategoryTotal

	for rows.Next() {
		var (
			t   domain.CategoryTotal
			sum pgtype.Numeric
		)

		if err := rows.Scan(&t.CategoryID, &t.Name, &t.Icon, &t.Color, &sum, &t.Count); err != nil {
			return nil, err
		}

		t.Total = numericToDecimal(sum)
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

// SumByAccount returns the signed sum of every movement on the account.
func (r *MovementRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'inflow' THEN amount ELSE -amount END), 0)
		FROM movements
		WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// where builds the positional WHERE clause shared by listings.
type where struct {
	conds []string
	args  []any
}

func newWhere(userID string, f domain.MovementFilter) *where {
	w := &where{}
	w.conds = append(w.conds, "m.user_id = "+w.arg(userID))

	if f.AccountID != "" {
		w.conds = append(w.conds, "m.account_id = "+w.arg(f.AccountID))
	}

	if f.CategoryID != "" {
		w.conds = append(w.conds, "m.category_id = "+w.arg(f.CategoryID))
	}

	if f.ExcludesTransfers() {
		w.conds = append(w.conds, "m.direction = "+w.arg(string(f.Direction)), "NOT m.is_transfer")
	}

	if f.From != nil {
		w.conds = append(w.conds, "m.occurred_at >= "+w.arg(timeToPgTimestamptz(*f.From)))
	}

	if f.To != nil {
		w.conds = append(w.conds, "m.occurred_at <= "+w.arg(timeToPgTimestamptz(*f.To)))
	}

	return w
}

// arg appends v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) clause() string {
	return "\n\tWHERE " + strings.Join(w.conds, " AND ")
}

func transferColumns(m *domain.Movement) (counter, pair *string) {
	if m.Transfer == nil {
		return nil, nil
	}

	counter = &m.Transfer.CounterAccountID
	if m.Transfer.PairID != "" {
		pair = &m.Transfer.PairID
	}

	return counter, pair
}

func getMovement(ctx context.Context, q querier, sql string, args ...any) (*domain.Movement, error) {
	var row movementRow

	if err := q.QueryRow(ctx, sql, args...).Scan(row.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMovementNotFound, args[0])
		}

		return nil, err
	}

	return row.movement(), nil
}

// movementRow holds the raw columns listed in movementColumns.
type movementRow struct {
	id, userID, accountID, direction, categoryID string
	amount                                       pgtype.Numeric
	concept                                      string
	notes                                        *string
	occurredAt                                   time.Time
	isTransfer                                   bool
	counterAccountID, pairID                     *string
	createdAt, updatedAt                         time.Time
}

func (r *movementRow) dest() []any {
	return []any{
		&r.id, &r.userID, &r.accountID, &r.direction, &r.categoryID, &r.amount,
		&r.concept, &r.notes, &r.occurredAt, &r.isTransfer, &r.counterAccountID, &r.pairID,
		&r.createdAt, &r.updatedAt,
	}
}

func (r *movementRow) movement() *domain.Movement {
	m := &domain.Movement{
		ID:         r.id,
		UserID:     r.userID,
		AccountID:  r.accountID,
		Direction:  domain.Direction(r.direction),
		CategoryID: r.categoryID,
		Amount:     numericToDecimal(r.amount),
		Concept:    r.concept,
		Notes:      r.notes,
		OccurredAt: r.occurredAt,
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}

	if r.isTransfer {
		m.Transfer = &domain.TransferLink{
			CounterAccountID: deref(r.counterAccountID),
			PairID:           deref(r.pairID),
		}
	}

	return m
}

func scanDetail(row pgx.Row) (*domain.MovementDetail, error) {
	var (
		mr                                 movementRow
		account                            domain.AccountSummary
		balance                            pgtype.Numeric
		catID, catName, catIcon, catColor  *string
		pairID, pairAccount, pairDirection *string
	)

	dest := append(mr.dest(),
		&account.Name, &account.Currency, &balance,
		&catID, &catName, &catIcon, &catColor,
		&pairID, &pairAccount, &pairDirection,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m := mr.movement()
	account.ID = m.AccountID
	account.Balance = numericToDecimal(balance)

	detail := &domain.MovementDetail{Movement: m, Account: account}

	if catID != nil {
		detail.Category = &domain.CategorySummary{
			ID:    *catID,
			Name:  deref(catName),
			Icon:  deref(catIcon),
			Color: deref(catColor),
		}
	}

	if pairID != nil {
		detail.Pair = &domain.PairSummary{
			MovementID: *pairID,
			AccountID:  deref(pairAccount),
			Direction:  domain.Direction(deref(pairDirection)),
		}
	}

	return detail, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
