package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
)

// Options carries the optional collaborators shared by the ledger use cases.
type Options struct {
	Cache    Cache
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// observe records an operation outcome. Integrity faults and unclassified
// errors are logged; business errors are the caller's to report.
func observe(m *metrics.Metrics, logger zerolog.Logger, operation string, start time.Time, err error) {
	if err == nil {
		m.ObserveOperation(operation, start, "")
		return
	}

	kind := domain.KindOf(err)
	if kind == domain.KindIntegrity || kind == domain.KindInternal {
		logger.Error().
			Err(err).
			Str("operation", operation).
			Str("kind", kind.String()).
			Msg("ledger operation aborted")
	}

	m.ObserveOperation(operation, start, kind.String())
}

// lockMovement locks the movement id and, for a transfer leg, its pair in
// one statement. transfer is nil for a simple movement. Nothing may be
// written for a leg whose pair cannot be loaded.
func lockMovement(ctx context.Context, movementRepo MovementRepository, tx Transaction, id, userID string) (*domain.Movement, *domain.Transfer, error) {
	rows, err := movementRepo.GetWithPairForUpdate(ctx, tx, id, userID)
	if err != nil {
		return nil, nil, err
	}

	var movement, pair *domain.Movement
	for _, m := range rows {
		if m.ID == id {
			movement = m
		}
	}

	if movement == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
	}

	if movement.Kind() != domain.MovementKindTransferLeg {
		return movement, nil, nil
	}

	if movement.Transfer.PairID == "" {
		return nil, nil, fmt.Errorf("%w: movement %s", domain.ErrUnpairedTransfer, id)
	}

	for _, m := range rows {
		if m.ID == movement.Transfer.PairID {
			pair = m
		}
	}

	if pair == nil {
		return nil, nil, fmt.Errorf("%w: movement %s references missing %s", domain.ErrPairNotFound, id, movement.Transfer.PairID)
	}

	transfer, err := domain.NewTransfer(movement, pair)
	if err != nil {
		return nil, nil, err
	}

	return movement, transfer, nil
}
