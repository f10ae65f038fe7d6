package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
)

// TransferUseCase handles transfer business logic.
type TransferUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	categoryRepo CategoryRepository
	movementRepo MovementRepository
	idGen        IDGenerator
	projector    *balanceProjector
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	categoryRepo CategoryRepository,
	movementRepo MovementRepository,
	idGen IDGenerator,
	opts Options,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		categoryRepo: categoryRepo,
		movementRepo: movementRepo,
		idGen:        idGen,
		projector:    newBalanceProjector(accountRepo),
		metrics:      opts.Metrics,
		logger:       opts.logger().With().Str("component", "transfers").Logger(),
	}
}

// CreateTransferInput represents input for creating a transfer.
type CreateTransferInput struct {
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Concept              string
	Notes                *string
	// OccurredAt defaults to now when zero.
	OccurredAt time.Time
}

// UpdateTransferInput holds the shared fields to change. Nil fields are
// kept; a non-nil empty Notes clears the notes.
type UpdateTransferInput struct {
	Amount     *decimal.Decimal
	Concept    *string
	Notes      *string
	OccurredAt *time.Time
}

// TransferResult is a transfer with the post-operation state of both
// accounts.
type TransferResult struct {
	Transfer    *domain.Transfer
	Source      domain.AccountSummary
	Destination domain.AccountSummary
}

// CreateTransfer moves money between two accounts of the same user as one
// outflow and one inflow movement.
func (uc *TransferUseCase) CreateTransfer(ctx context.Context, userID string, input CreateTransferInput) (result *TransferResult, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "transfer.create", start, err) }()

	// 0. Validate inputs before starting transaction
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

	// 1. Collect and sort unique account IDs (DEADLOCK PREVENTION)
	accountIDs := []string{input.SourceAccountID, input.DestinationAccountID}
	sort.Strings(accountIDs)
	accountIDs = slices.Compact(accountIDs)

	err = runInTx(ctx, uc.txManager, func(tx Transaction) error {
		// 2. Lock accounts in sorted order
		accounts, err := uc.accountRepo.GetActiveByIDsForUpdate(ctx, tx, accountIDs, userID)
		if err != nil {
			return err
		}

		accountMap := make(map[string]*domain.Account, len(accounts))
		for _, account := range accounts {
			accountMap[account.ID] = account
		}

		source, destination, err := uc.checkAccounts(accountMap, input)
		if err != nil {
			return err
		}

		// 3. File both legs under the user's transfers category
		category, err := uc.transfersCategory(ctx, tx, userID)
		if err != nil {
			return err
		}

		// 4. Insert the legs and link them
		outflow := &domain.Movement{
			ID:         uc.idGen.Generate(),
			UserID:     userID,
			AccountID:  source.ID,
			Direction:  domain.DirectionOutflow,
			CategoryID: category.ID,
			Amount:     input.Amount,
			Concept:    strings.TrimSpace(input.Concept),
			Notes:      normalizeNotes(input.Notes),
			OccurredAt: occurredAt.UTC(),
			Transfer:   &domain.TransferLink{CounterAccountID: destination.ID},
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := uc.movementRepo.Create(ctx, tx, outflow); err != nil {
			return err
		}

		inflow := *outflow
		inflow.ID = uc.idGen.Generate()
		inflow.AccountID = destination.ID
		inflow.Direction = domain.DirectionInflow
		inflow.Transfer = &domain.TransferLink{CounterAccountID: source.ID, PairID: outflow.ID}

		if err := uc.movementRepo.Create(ctx, tx, &inflow); err != nil {
			return err
		}

		if err := uc.movementRepo.SetPairID(ctx, tx, outflow.ID, inflow.ID, now); err != nil {
			return err
		}
		outflow.Transfer.PairID = inflow.ID

		transfer, err := domain.NewTransfer(outflow, &inflow)
		if err != nil {
			return err
		}

		// 5. Project both legs
		if source.Balance, err = uc.projector.apply(ctx, tx, transfer.Outflow, now); err != nil {
			return err
		}

		if destination.Balance, err = uc.projector.apply(ctx, tx, transfer.Inflow, now); err != nil {
			return err
		}

		result = &TransferResult{
			Transfer:    transfer,
			Source:      source.Summary(),
			Destination: destination.Summary(),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Transfers.WithLabelValues("create").Inc()
	}

	uc.logger.Info().
		Str("transfer_id", result.Transfer.ID()).
		Str("source_account_id", result.Source.ID).
		Str("destination_account_id", result.Destination.ID).
		Str("amount", result.Transfer.Amount().String()).
		Msg("transfer created")

	return result, nil
}

// checkAccounts runs the account rules in order: existence, distinctness,
// currency, then the advisory balance guard.
func (uc *TransferUseCase) checkAccounts(accountMap map[string]*domain.Account, input CreateTransferInput) (*domain.Account, *domain.Account, error) {
	source := accountMap[input.SourceAccountID]
	if source == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, input.SourceAccountID)
	}

	destination := accountMap[input.DestinationAccountID]
	if destination == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, input.DestinationAccountID)
	}

	if source.ID == destination.ID {
		return nil, nil, domain.ErrSameAccount
	}

	if source.Currency != destination.Currency {
		return nil, nil, fmt.Errorf("%w: %q is %s, %q is %s",
			domain.ErrCurrencyMismatch, source.Name, source.Currency, destination.Name, destination.Currency)
	}

	if !source.Covers(input.Amount) {
		return nil, nil, fmt.Errorf("%w: available %s, required %s",
			domain.ErrInsufficientBalance, source.Balance.String(), input.Amount.String())
	}

	return source, destination, nil
}

// transfersCategory returns the user's transfers category, creating it on
// first use.
func (uc *TransferUseCase) transfersCategory(ctx context.Context, tx Transaction, userID string) (*domain.Category, error) {
	category, err := uc.categoryRepo.GetByName(ctx, tx, userID, domain.TransfersCategoryName)
	if err == nil {
		return category, nil
	}

	if !errors.Is(err, domain.ErrCategoryNotFound) {
		return nil, err
	}

	category = &domain.Category{
		ID:     uc.idGen.Generate(),
		UserID: userID,
		Name:   domain.TransfersCategoryName,
		Scope:  domain.CategoryScopeExpense,
		Icon:   domain.TransfersCategoryIcon,
		Color:  domain.TransfersCategoryColor,
	}

	if err := uc.categoryRepo.Create(ctx, tx, category); err != nil {
		return nil, err
	}

	// A concurrent creator may have won the insert.
	return uc.categoryRepo.GetByName(ctx, tx, userID, domain.TransfersCategoryName)
}

// UpdateTransfer edits the shared fields of both legs. id may be either leg.
func (uc *TransferUseCase) UpdateTransfer(ctx context.Context, id, userID string, input UpdateTransferInput) (result *TransferResult, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "transfer.update", start, err) }()

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

	err = runInTx(ctx, uc.txManager, func(tx Transaction) error {
		_, transfer, err := lockMovement(ctx, uc.movementRepo, tx, id, userID)
		if err != nil {
			return err
		}

		if transfer == nil {
			return fmt.Errorf("%w: movement %s", domain.ErrTransferNotFound, id)
		}

		fields := transfer.Fields()

		deltas := make(map[string]decimal.Decimal, 2)
		if input.Amount != nil {
			for _, l := range transfer.Legs() {
				deltas[l.ID] = l.AmountChangeDelta(*input.Amount)
			}
			fields.Amount = *input.Amount
		}

		if input.Concept != nil {
			fields.Concept = strings.TrimSpace(*input.Concept)
		}

		if input.Notes != nil {
			fields.Notes = normalizeNotes(input.Notes)
		}

		if input.OccurredAt != nil {
			fields.OccurredAt = input.OccurredAt.UTC()
		}

		transfer.Apply(fields, now)

		legs := transfer.Legs()
		sort.Slice(legs, func(i, j int) bool { return legs[i].AccountID < legs[j].AccountID })

		for _, l := range legs {
			if err := uc.movementRepo.Update(ctx, tx, l); err != nil {
				return err
			}

			if delta := deltas[l.ID]; !delta.IsZero() {
				if _, err := uc.projector.applyDelta(ctx, tx, l.AccountID, delta, now); err != nil {
					return err
				}
			}
		}

		source, err := uc.accountRepo.GetByIDTx(ctx, tx, transfer.SourceAccountID(), userID)
		if err != nil {
			return err
		}

		destination, err := uc.accountRepo.GetByIDTx(ctx, tx, transfer.DestinationAccountID(), userID)
		if err != nil {
			return err
		}

		result = &TransferResult{
			Transfer:    transfer,
			Source:      source.Summary(),
			Destination: destination.Summary(),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Transfers.WithLabelValues("update").Inc()
	}

	uc.logger.Info().
		Str("transfer_id", result.Transfer.ID()).
		Str("amount", result.Transfer.Amount().String()).
		Msg("transfer updated")

	return result, nil
}

// GetTransfer returns the transfer containing leg id.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id, userID string) (*TransferResult, error) {
	leg, err := uc.movementRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if leg.Kind() != domain.MovementKindTransferLeg {
		return nil, fmt.Errorf("%w: movement %s", domain.ErrTransferNotFound, id)
	}

	if leg.Transfer.PairID == "" {
		return nil, fmt.Errorf("%w: movement %s", domain.ErrUnpairedTransfer, leg.ID)
	}

	pair, err := uc.movementRepo.GetByID(ctx, leg.Transfer.PairID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMovementNotFound) {
			return nil, fmt.Errorf("%w: movement %s references missing %s", domain.ErrPairNotFound, leg.ID, leg.Transfer.PairID)
		}
		return nil, err
	}

	transfer, err := domain.NewTransfer(leg, pair)
	if err != nil {
		return nil, err
	}

	source, err := uc.accountRepo.GetByID(ctx, transfer.SourceAccountID(), userID)
	if err != nil {
		return nil, err
	}

	destination, err := uc.accountRepo.GetByID(ctx, transfer.DestinationAccountID(), userID)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Transfer:    transfer,
		Source:      source.Summary(),
		Destination: destination.Summary(),
	}, nil
}
