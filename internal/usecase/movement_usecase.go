package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
)

// MovementUseCase handles single movements and deletion of transfers.
type MovementUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	categoryRepo CategoryRepository
	movementRepo MovementRepository
	idGen        IDGenerator
	projector    *balanceProjector
	breakdowns   *breakdownCache
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewMovementUseCase creates a new MovementUseCase.
func NewMovementUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	categoryRepo CategoryRepository,
	movementRepo MovementRepository,
	idGen IDGenerator,
	opts Options,
) *MovementUseCase {
	logger := opts.logger().With().Str("component", "movements").Logger()

	return &MovementUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		categoryRepo: categoryRepo,
		movementRepo: movementRepo,
		idGen:        idGen,
		projector:    newBalanceProjector(accountRepo),
		breakdowns:   newBreakdownCache(opts.Cache, opts.CacheTTL, logger, opts.Metrics),
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// CreateMovementInput represents input for recording a movement.
type CreateMovementInput struct {
	AccountID  string
	CategoryID string
	Direction  domain.Direction
	Amount     decimal.Decimal
	Concept    string
	Notes      *string
	// OccurredAt defaults to now when zero.
	OccurredAt time.Time
}

// UpdateMovementInput holds the fields to change. Nil fields are kept.
// A non-nil empty Notes clears the notes.
type UpdateMovementInput struct {
	CategoryID *string
	Amount     *decimal.Decimal
	Concept    *string
	Notes      *string
	OccurredAt *time.Time
}

// CreateMovement records a simple movement and applies it to its account.
func (uc *MovementUseCase) CreateMovement(ctx context.Context, userID string, input CreateMovementInput) (detail *domain.MovementDetail, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "movement.create", start, err) }()

	// 1. Validate inputs before starting transaction
	if !input.Direction.IsValid() {
		return nil, domain.ErrInvalidDirection
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateConcept(input.Concept); err != nil {
		return nil, err
	}

	if err := domain.ValidateNotes(input.Notes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	movement := &domain.Movement{
		ID:         uc.idGen.Generate(),
		UserID:     userID,
		AccountID:  input.AccountID,
		Direction:  input.Direction,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
		Concept:    strings.TrimSpace(input.Concept),
		Notes:      normalizeNotes(input.Notes),
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// 2. Resolve references, insert and project in one unit
	err = runInTx(ctx, uc.txManager, func(tx Transaction) error {
		account, err := uc.accountRepo.GetActiveForUpdate(ctx, tx, movement.AccountID, userID)
		if err != nil {
			return err
		}

		category, err := uc.categoryRepo.GetForOwner(ctx, tx, movement.CategoryID, userID, domain.CategoryScopeExpense)
		if err != nil {
			return err
		}

		if err := uc.movementRepo.Create(ctx, tx, movement); err != nil {
			return err
		}

		balance, err := uc.projector.apply(ctx, tx, movement, now)
		if err != nil {
			return err
		}

		account.Balance = balance
		categorySummary := category.Summary()
		detail = &domain.MovementDetail{
			Movement: movement,
			Account:  account.Summary(),
			Category: &categorySummary,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.breakdowns.invalidate(ctx, userID, movement.OccurredAt)
	uc.recordCreated(movement)

	uc.logger.Info().
		Str("movement_id", movement.ID).
		Str("account_id", movement.AccountID).
		Str("direction", string(movement.Direction)).
		Str("amount", movement.Amount.String()).
		Msg("movement created")

	return detail, nil
}

// GetMovement returns an owned movement with its joined summaries.
func (uc *MovementUseCase) GetMovement(ctx context.Context, id, userID string) (*domain.MovementDetail, error) {
	return uc.movementRepo.GetDetail(ctx, id, userID)
}

// UpdateMovement edits a simple movement. An amount change is applied to
// the account as one combined delta.
func (uc *MovementUseCase) UpdateMovement(ctx context.Context, id, userID string, input UpdateMovementInput) (detail *domain.MovementDetail, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "movement.update", start, err) }()

	if input.Amount != nil {
		if err := domain.ValidateAmount(*input.Amount); err != nil {
			return nil, err
		}
	}

	if input.Concept != nil {
		if err := domain.ValidateConcept(*input.Concept); err != nil {
			return nil, err
		}
	}

	if err := domain.ValidateNotes(input.Notes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var (
		previousDate time.Time
		currentDate  time.Time
		delta        decimal.Decimal
	)

	err = runInTx(ctx, uc.txManager, func(tx Transaction) error {
		movement, err := uc.movementRepo.GetByIDForUpdate(ctx, tx, id, userID)
		if err != nil {
			return err
		}

		switch movement.Kind() {
		case domain.MovementKindTransferLeg:
			return fmt.Errorf("%w: movement %s", domain.ErrTransferLegEdit, movement.ID)
		case domain.MovementKindSimple:
		}

		previousDate = movement.OccurredAt

		if input.CategoryID != nil && *input.CategoryID != movement.CategoryID {
			if _, err := uc.categoryRepo.GetForOwner(ctx, tx, *input.CategoryID, userID, domain.CategoryScopeExpense); err != nil {
				return err
			}
			movement.CategoryID = *input.CategoryID
		}

		delta = decimal.Zero
		if input.Amount != nil {
			delta = movement.AmountChangeDelta(*input.Amount)
			movement.Amount = *input.Amount
		}

		if input.Concept != nil {
			movement.Concept = strings.TrimSpace(*input.Concept)
		}

		if input.Notes != nil {
			movement.Notes = normalizeNotes(input.Notes)
		}

		if input.OccurredAt != nil {
			movement.OccurredAt = input.OccurredAt.UTC()
		}

		movement.UpdatedAt = now
		currentDate = movement.OccurredAt

		if err := uc.movementRepo.Update(ctx, tx, movement); err != nil {
			return err
		}

		if delta.IsZero() {
			return nil
		}

		_, err = uc.projector.applyDelta(ctx, tx, movement.AccountID, delta, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.breakdowns.invalidate(ctx, userID, previousDate, currentDate)
	if uc.metrics != nil {
		uc.metrics.Movements.WithLabelValues("update", "").Inc()
	}

	uc.logger.Info().
		Str("movement_id", id).
		Str("balance_delta", delta.String()).
		Msg("movement updated")

	return uc.movementRepo.GetDetail(ctx, id, userID)
}

// DeleteMovement removes a movement and reverses its balance effect.
// Deleting either leg of a transfer removes the whole transfer.
func (uc *MovementUseCase) DeleteMovement(ctx context.Context, id, userID string) (err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "movement.delete", start, err) }()

	now := time.Now().UTC()

	var removed []*domain.Movement

	err = runInTx(ctx, uc.txManager, func(tx Transaction) error {
		movement, transfer, err := lockMovement(ctx, uc.movementRepo, tx, id, userID)
		if err != nil {
			return err
		}

		legs := []*domain.Movement{movement}
		if transfer != nil {
			legs = transfer.Legs()
		}

		// Touch accounts in a stable order
		sort.Slice(legs, func(i, j int) bool { return legs[i].AccountID < legs[j].AccountID })

		for _, leg := range legs {
			if _, err := uc.projector.reverse(ctx, tx, leg, now); err != nil {
				return err
			}

			if err := uc.movementRepo.Delete(ctx, tx, leg.ID); err != nil {
				return err
			}
		}

		removed = legs
		return nil
	})
	if err != nil {
		return err
	}

	if len(removed) == 1 {
		uc.breakdowns.invalidate(ctx, userID, removed[0].OccurredAt)
		if uc.metrics != nil {
			uc.metrics.Movements.WithLabelValues("delete", string(removed[0].Direction)).Inc()
		}
	} else if uc.metrics != nil {
		uc.metrics.Transfers.WithLabelValues("delete").Inc()
	}

	uc.logger.Info().
		Str("movement_id", id).
		Int("legs", len(removed)).
		Msg("movement deleted")

	return nil
}

func (uc *MovementUseCase) recordCreated(m *domain.Movement) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.Movements.WithLabelValues("create", string(m.Direction)).Inc()
	uc.metrics.MovementAmount.WithLabelValues(string(m.Direction)).Observe(m.Amount.InexactFloat64())
}

// normalizeNotes trims notes and maps blank notes to nil.
func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
