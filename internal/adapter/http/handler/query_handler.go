package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/pocketledger/internal/adapter/http/dto"
	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

// QueryService defines the read operations used by the handler.
type QueryService interface {
	ListMovements(ctx context.Context, userID string, input usecase.ListMovementsInput) (*domain.MovementPage, error)
	CategoryBreakdown(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, error)
}

// QueryHandler serves movement listings and reports.
type QueryHandler struct {
	queryUC QueryService
	now     func() time.Time
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryUC QueryService) *QueryHandler {
	return &QueryHandler{queryUC: queryUC, now: time.Now}
}

// List handles GET /movements.
func (h *QueryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	input, err := listInputFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	page, err := h.queryUC.ListMovements(r.Context(), userID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MovementPageFromDomain(page))
}

// CategoryBreakdown handles GET /reports/category-breakdown. Month and
// year default to the current UTC month.
func (h *QueryHandler) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	now := h.now().UTC()

	month, err := parseIntQuery(r, "month", int(now.Month()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	year, err := parseIntQuery(r, "year", now.Year())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	breakdown, err := h.queryUC.CategoryBreakdown(r.Context(), userID, month, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoryBreakdownFromDomain(breakdown))
}

func listInputFromQuery(r *http.Request) (usecase.ListMovementsInput, error) {
	q := r.URL.Query()

	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		return usecase.ListMovementsInput{}, err
	}

	offset, err := parseIntQuery(r, "offset", 0)
	if err != nil {
		return usecase.ListMovementsInput{}, err
	}

	from, err := parseTimeQuery(r, "from", false)
	if err != nil {
		return usecase.ListMovementsInput{}, err
	}

	to, err := parseTimeQuery(r, "to", true)
	if err != nil {
		return usecase.ListMovementsInput{}, err
	}

	return usecase.ListMovementsInput{
		Filter: domain.MovementFilter{
			AccountID:  q.Get("account_id"),
			CategoryID: q.Get("category_id"),
			Direction:  domain.Direction(q.Get("direction")),
			From:       from,
			To:         to,
		},
		Limit:  limit,
		Offset: offset,
	}, nil
}
