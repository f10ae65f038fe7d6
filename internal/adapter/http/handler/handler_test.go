package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pocketledger/internal/adapter/http/dto"
	"github.com/iho/pocketledger/internal/adapter/http/middleware"
	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

var testTime = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type movementServiceStub struct {
	createFn func(ctx context.Context, userID string, input usecase.CreateMovementInput) (*domain.MovementDetail, error)
	getFn    func(ctx context.Context, id, userID string) (*domain.MovementDetail, error)
	updateFn func(ctx context.Context, id, userID string, input usecase.UpdateMovementInput) (*domain.MovementDetail, error)
	deleteFn func(ctx context.Context, id, userID string) error
}

func (s *movementServiceStub) CreateMovement(ctx context.Context, userID string, input usecase.CreateMovementInput) (*domain.MovementDetail, error) {
	return s.createFn(ctx, userID, input)
}

func (s *movementServiceStub) GetMovement(ctx context.Context, id, userID string) (*domain.MovementDetail, error) {
	return s.getFn(ctx, id, userID)
}

func (s *movementServiceStub) UpdateMovement(ctx context.Context, id, userID string, input usecase.UpdateMovementInput) (*domain.MovementDetail, error) {
	return s.updateFn(ctx, id, userID, input)
}

func (s *movementServiceStub) DeleteMovement(ctx context.Context, id, userID string) error {
	return s.deleteFn(ctx, id, userID)
}

type transferServiceStub struct {
	createFn func(ctx context.Context, userID string, input usecase.CreateTransferInput) (*usecase.TransferResult, error)
	updateFn func(ctx context.Context, id, userID string, input usecase.UpdateTransferInput) (*usecase.TransferResult, error)
	getFn    func(ctx context.Context, id, userID string) (*usecase.TransferResult, error)
}

func (s *transferServiceStub) CreateTransfer(ctx context.Context, userID string, input usecase.CreateTransferInput) (*usecase.TransferResult, error) {
	return s.createFn(ctx, userID, input)
}

func (s *transferServiceStub) UpdateTransfer(ctx context.Context, id, userID string, input usecase.UpdateTransferInput) (*usecase.TransferResult, error) {
	return s.updateFn(ctx, id, userID, input)
}

func (s *transferServiceStub) GetTransfer(ctx context.Context, id, userID string) (*usecase.TransferResult, error) {
	return s.getFn(ctx, id, userID)
}

type queryServiceStub struct {
	listFn      func(ctx context.Context, userID string, input usecase.ListMovementsInput) (*domain.MovementPage, error)
	breakdownFn func(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, error)
}

func (s *queryServiceStub) ListMovements(ctx context.Context, userID string, input usecase.ListMovementsInput) (*domain.MovementPage, error) {
	return s.listFn(ctx, userID, input)
}

func (s *queryServiceStub) CategoryBreakdown(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, error) {
	return s.breakdownFn(ctx, userID, month, year)
}

func simpleDetail() *domain.MovementDetail {
	return &domain.MovementDetail{
		Movement: &domain.Movement{
			ID: "mv-1", UserID: "user-1", AccountID: "acc-1", Direction: domain.DirectionOutflow,
			CategoryID: "cat-food", Amount: decimal.RequireFromString("12.5"), Concept: "Lunch",
			OccurredAt: testTime, CreatedAt: testTime, UpdatedAt: testTime,
		},
		Account:  domain.AccountSummary{ID: "acc-1", Name: "Wallet", Currency: "ARS", Balance: decimal.RequireFromString("87.5")},
		Category: &domain.CategorySummary{ID: "cat-food", Name: "Comida"},
	}
}

func transferResult(t *testing.T) *usecase.TransferResult {
	t.Helper()

	out := &domain.Movement{
		ID: "mv-out", UserID: "user-1", AccountID: "acc-a", Direction: domain.DirectionOutflow,
		CategoryID: "cat-transfers", Amount: decimal.NewFromInt(30), Concept: "Savings", OccurredAt: testTime,
		Transfer: &domain.TransferLink{CounterAccountID: "acc-b", PairID: "mv-in"},
	}
	in := &domain.Movement{
		ID: "mv-in", UserID: "user-1", AccountID: "acc-b", Direction: domain.DirectionInflow,
		CategoryID: "cat-transfers", Amount: decimal.NewFromInt(30), Concept: "Savings", OccurredAt: testTime,
		Transfer: &domain.TransferLink{CounterAccountID: "acc-a", PairID: "mv-out"},
	}

	transfer, err := domain.NewTransfer(in, out)
	require.NoError(t, err)

	return &usecase.TransferResult{
		Transfer:    transfer,
		Source:      domain.AccountSummary{ID: "acc-a", Currency: "ARS", Balance: decimal.NewFromInt(70)},
		Destination: domain.AccountSummary{ID: "acc-b", Currency: "ARS", Balance: decimal.NewFromInt(30)},
	}
}

// newRequest builds a request for user-1 with chi URL params.
func newRequest(method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithUserID(ctx, "user-1"))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestMovementHandler_Create(t *testing.T) {
	var captured usecase.CreateMovementInput

	h := NewMovementHandler(&movementServiceStub{
		createFn: func(ctx context.Context, userID string, input usecase.CreateMovementInput) (*domain.MovementDetail, error) {
			assert.Equal(t, "user-1", userID)
			captured = input
			return simpleDetail(), nil
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/movements",
		`{"account_id":"acc-1","category_id":"cat-food","direction":"outflow","amount":"12.50","concept":"Lunch"}`, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.DirectionOutflow, captured.Direction)
	assert.True(t, captured.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, captured.OccurredAt.IsZero())

	resp := decodeBody[dto.MovementResponse](t, rec)
	assert.Equal(t, "simple", resp.Kind)
	require.NotNil(t, resp.Account)
	assert.True(t, resp.Account.Balance.Equal(decimal.RequireFromString("87.5")))
}

func TestMovementHandler_Create_InvalidAmount(t *testing.T) {
	h := NewMovementHandler(&movementServiceStub{})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/movements", `{"amount":"abc"}`, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[dto.ErrorResponse](t, rec)
	assert.Equal(t, "bad_request", resp.Kind)
}

func TestMovementHandler_Create_MalformedBody(t *testing.T) {
	h := NewMovementHandler(&movementServiceStub{})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/movements", `{`, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovementHandler_RequiresUser(t *testing.T) {
	h := NewMovementHandler(&movementServiceStub{})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/movements/mv-1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMovementHandler_ErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantLeak   bool
	}{
		{name: "not found", err: domain.ErrMovementNotFound, wantStatus: http.StatusNotFound, wantKind: "not_found", wantLeak: true},
		{name: "bad request", err: domain.ErrTransferLegEdit, wantStatus: http.StatusBadRequest, wantKind: "bad_request", wantLeak: true},
		{name: "integrity", err: domain.ErrBrokenTransfer, wantStatus: http.StatusInternalServerError, wantKind: "integrity"},
		{name: "internal", err: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError, wantKind: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMovementHandler(&movementServiceStub{
				getFn: func(ctx context.Context, id, userID string) (*domain.MovementDetail, error) {
					return nil, tt.err
				},
			})

			rec := httptest.NewRecorder()
			h.Get(rec, newRequest(http.MethodGet, "/movements/mv-1", "", map[string]string{"id": "mv-1"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeBody[dto.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantLeak {
				assert.Equal(t, tt.err.Error(), resp.Error)
			} else {
				assert.Equal(t, "internal server error", resp.Error)
			}
		})
	}
}

func TestMovementHandler_Update(t *testing.T) {
	var captured usecase.UpdateMovementInput

	h := NewMovementHandler(&movementServiceStub{
		updateFn: func(ctx context.Context, id, userID string, input usecase.UpdateMovementInput) (*domain.MovementDetail, error) {
			assert.Equal(t, "mv-1", id)
			captured = input
			return simpleDetail(), nil
		},
	})

	rec := httptest.NewRecorder()
	h.Update(rec, newRequest(http.MethodPatch, "/movements/mv-1", `{"amount":"20"}`, map[string]string{"id": "mv-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured.Amount)
	assert.True(t, captured.Amount.Equal(decimal.NewFromInt(20)))
	assert.Nil(t, captured.Concept)
	assert.Nil(t, captured.CategoryID)
}

func TestMovementHandler_Delete(t *testing.T) {
	var deleted string

	h := NewMovementHandler(&movementServiceStub{
		deleteFn: func(ctx context.Context, id, userID string) error {
			deleted = id
			return nil
		},
	})

	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(http.MethodDelete, "/movements/mv-1", "", map[string]string{"id": "mv-1"}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "mv-1", deleted)
}

func TestTransferHandler_Create(t *testing.T) {
	var captured usecase.CreateTransferInput

	h := NewTransferHandler(&transferServiceStub{
		createFn: func(ctx context.Context, userID string, input usecase.CreateTransferInput) (*usecase.TransferResult, error) {
			captured = input
			return transferResult(t), nil
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/transfers",
		`{"source_account_id":"acc-a","destination_account_id":"acc-b","amount":"30","concept":"Savings"}`, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acc-a", captured.SourceAccountID)
	assert.Equal(t, "acc-b", captured.DestinationAccountID)

	resp := decodeBody[dto.TransferResponse](t, rec)
	assert.Equal(t, "mv-out", resp.Outflow.ID)
	assert.Equal(t, "mv-in", resp.Inflow.ID)
	assert.True(t, resp.Source.Balance.Equal(decimal.NewFromInt(70)))
}

func TestTransferHandler_Create_SameAccount(t *testing.T) {
	h := NewTransferHandler(&transferServiceStub{
		createFn: func(ctx context.Context, userID string, input usecase.CreateTransferInput) (*usecase.TransferResult, error) {
			return nil, domain.ErrSameAccount
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/transfers",
		`{"source_account_id":"acc-a","destination_account_id":"acc-a","amount":"30"}`, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferHandler_GetAndUpdate(t *testing.T) {
	h := NewTransferHandler(&transferServiceStub{
		getFn: func(ctx context.Context, id, userID string) (*usecase.TransferResult, error) {
			assert.Equal(t, "mv-in", id)
			return transferResult(t), nil
		},
		updateFn: func(ctx context.Context, id, userID string, input usecase.UpdateTransferInput) (*usecase.TransferResult, error) {
			require.NotNil(t, input.Concept)
			assert.Equal(t, "Rent", *input.Concept)
			return nil, domain.ErrUnpairedTransfer
		},
	})

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/transfers/mv-in", "", map[string]string{"id": "mv-in"}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(http.MethodPatch, "/transfers/mv-1", `{"concept":"Rent"}`, map[string]string{"id": "mv-1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_List(t *testing.T) {
	var captured usecase.ListMovementsInput

	h := NewQueryHandler(&queryServiceStub{
		listFn: func(ctx context.Context, userID string, input usecase.ListMovementsInput) (*domain.MovementPage, error) {
			captured = input
			return &domain.MovementPage{
				Items:  []*domain.MovementDetail{simpleDetail()},
				Total:  1,
				Limit:  20,
				Totals: domain.NewPeriodTotals(decimal.Zero, decimal.RequireFromString("12.5")),
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet,
		"/movements?account_id=acc-1&direction=outflow&from=2024-03-01&to=2024-03-31&limit=20&offset=40", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", captured.Filter.AccountID)
	assert.Equal(t, domain.DirectionOutflow, captured.Filter.Direction)
	assert.Equal(t, 20, captured.Limit)
	assert.Equal(t, 40, captured.Offset)
	require.NotNil(t, captured.Filter.From)
	require.NotNil(t, captured.Filter.To)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *captured.Filter.From)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), *captured.Filter.To)

	resp := decodeBody[dto.MovementPageResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Totals.Balance.Equal(decimal.RequireFromString("-12.5")))
}

func TestQueryHandler_List_InvalidQuery(t *testing.T) {
	h := NewQueryHandler(&queryServiceStub{})

	for _, target := range []string{"/movements?limit=ten", "/movements?from=yesterday"} {
		rec := httptest.NewRecorder()
		h.List(rec, newRequest(http.MethodGet, target, "", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestQueryHandler_CategoryBreakdown_DefaultsToCurrentMonth(t *testing.T) {
	h := NewQueryHandler(&queryServiceStub{
		breakdownFn: func(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, error) {
			assert.Equal(t, 3, month)
			assert.Equal(t, 2024, year)
			return &domain.CategoryBreakdown{
				Month: month,
				Year:  year,
				Total: decimal.NewFromInt(80),
				Categories: []domain.CategoryTotal{
					{CategoryID: "cat-food", Name: "Comida", Total: decimal.NewFromInt(80), Count: 2},
				},
			}, nil
		},
	})
	h.now = func() time.Time { return testTime }

	rec := httptest.NewRecorder()
	h.CategoryBreakdown(rec, newRequest(http.MethodGet, "/reports/category-breakdown", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[dto.CategoryBreakdownResponse](t, rec)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, int64(2), resp.Categories[0].Count)
}

func TestQueryHandler_CategoryBreakdown_InvalidPeriod(t *testing.T) {
	h := NewQueryHandler(&queryServiceStub{
		breakdownFn: func(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, error) {
			assert.Equal(t, 13, month)
			return nil, domain.ErrInvalidPeriod
		},
	})

	rec := httptest.NewRecorder()
	h.CategoryBreakdown(rec, newRequest(http.MethodGet, "/reports/category-breakdown?month=13&year=2024", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return context.DeadlineExceeded }

	tests := []struct {
		name       string
		postgres   HealthCheck
		redis      HealthCheck
		wantStatus int
	}{
		{name: "ready without redis", postgres: ok, wantStatus: http.StatusOK},
		{name: "ready with redis", postgres: ok, redis: ok, wantStatus: http.StatusOK},
		{name: "postgres down", postgres: down, redis: ok, wantStatus: http.StatusServiceUnavailable},
		{name: "redis down", postgres: ok, redis: down, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis)

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
