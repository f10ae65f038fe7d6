package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
)

// QueryUseCase serves read-only ledger views.
type QueryUseCase struct {
	movementRepo MovementRepository
	breakdowns   *breakdownCache
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(movementRepo MovementRepository, opts Options) *QueryUseCase {
	logger := opts.logger().With().Str("component", "queries").Logger()

	return &QueryUseCase{
		movementRepo: movementRepo,
		breakdowns:   newBreakdownCache(opts.Cache, opts.CacheTTL, logger, opts.Metrics),
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// ListMovementsInput represents a filtered, paginated listing request.
type ListMovementsInput struct {
	Filter domain.MovementFilter
	Limit  int
	Offset int
}

// ListMovements returns one page of movements, newest first, with totals
// over every non-transfer movement matching the filter.
func (uc *QueryUseCase) ListMovements(ctx context.Context, userID string, input ListMovementsInput) (page *domain.MovementPage, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "movement.list", start, err) }()

	filter := input.Filter
	if filter.Direction != "" && !filter.Direction.IsValid() {
		return nil, domain.ErrInvalidDirection
	}

	if err := domain.ValidateDateRange(filter.From, filter.To); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	var (
		items           []*domain.MovementDetail
		total           int64
		inflow, outflow decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		items, err = uc.movementRepo.List(gctx, userID, filter, limit, offset)
		return err
	})

	g.Go(func() error {
		var err error
		total, err = uc.movementRepo.Count(gctx, userID, filter)
		return err
	})

	g.Go(func() error {
		var err error
		inflow, outflow, err = uc.movementRepo.Totals(gctx, userID, filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*domain.MovementDetail{}
	}

	return &domain.MovementPage{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
		Totals:  domain.NewPeriodTotals(inflow, outflow),
	}, nil
}

// CategoryBreakdown groups a month's non-transfer outflows by category,
// largest total first.
func (uc *QueryUseCase) CategoryBreakdown(ctx context.Context, userID string, month, year int) (breakdown *domain.CategoryBreakdown, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, uc.logger, "movement.breakdown", start, err) }()

	from, to, err := domain.MonthBounds(month, year)
	if err != nil {
		return nil, err
	}

	if cached, ok := uc.breakdowns.get(ctx, userID, month, year); ok {
		return cached, nil
	}

	totals, err := uc.movementRepo.CategoryBreakdown(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	grandTotal := decimal.Zero
	for i := range totals {
		if totals[i].Name == "" {
			totals[i].Name = domain.UnknownCategoryName
			totals[i].Icon = domain.UnknownCategoryIcon
			totals[i].Color = domain.UnknownCategoryColor
		}
		grandTotal = grandTotal.Add(totals[i].Total)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Name < totals[j].Name
	})

	if totals == nil {
		totals = []domain.CategoryTotal{}
	}

	breakdown = &domain.CategoryBreakdown{
		Month:      month,
		Year:       year,
		Categories: totals,
		Total:      grandTotal,
	}

	uc.breakdowns.set(ctx, userID, breakdown)

	return breakdown, nil
}
