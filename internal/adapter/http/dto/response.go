package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccountSummaryResponse is the account attached to movements.
type AccountSummaryResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// AccountSummaryFromDomain converts an account summary to response.
func AccountSummaryFromDomain(a domain.AccountSummary) AccountSummaryResponse {
	return AccountSummaryResponse{
		ID:       a.ID,
		Name:     a.Name,
		Currency: a.Currency,
		Balance:  a.Balance,
	}
}

// CategorySummaryResponse is the category attached to movements.
type CategorySummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// PairResponse describes the other leg of a transfer.
type PairResponse struct {
	MovementID string `json:"movement_id"`
	AccountID  string `json:"account_id"`
	Direction  string `json:"direction"`
}

// MovementResponse represents a movement in API responses.
type MovementResponse struct {
	ID               string                   `json:"id"`
	Kind             string                   `json:"kind"`
	AccountID        string                   `json:"account_id"`
	Direction        string                   `json:"direction"`
	CategoryID       string                   `json:"category_id"`
	Amount           decimal.Decimal          `json:"amount"`
	Concept          string                   `json:"concept"`
	Notes            *string                  `json:"notes"`
	OccurredAt       time.Time                `json:"occurred_at"`
	CounterAccountID string                   `json:"counter_account_id,omitempty"`
	PairID           string                   `json:"pair_id,omitempty"`
	Account          *AccountSummaryResponse  `json:"account,omitempty"`
	Category         *CategorySummaryResponse `json:"category"`
	Pair             *PairResponse            `json:"pair,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// MovementFromDomain converts a bare movement to response.
func MovementFromDomain(m *domain.Movement) *MovementResponse {
	resp := &MovementResponse{
		ID:         m.ID,
		Kind:       movementKind(m),
		AccountID:  m.AccountID,
		Direction:  string(m.Direction),
		CategoryID: m.CategoryID,
		Amount:     m.Amount,
		Concept:    m.Concept,
		Notes:      m.Notes,
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	if m.Transfer != nil {
		resp.CounterAccountID = m.Transfer.CounterAccountID
		resp.PairID = m.Transfer.PairID
	}

	return resp
}

// MovementDetailFromDomain converts a joined movement to response.
func MovementDetailFromDomain(d *domain.MovementDetail) *MovementResponse {
	resp := MovementFromDomain(d.Movement)

	account := AccountSummaryFromDomain(d.Account)
	resp.Account = &account

	if d.Category != nil {
		resp.Category = &CategorySummaryResponse{
			ID:    d.Category.ID,
			Name:  d.Category.Name,
			Icon:  d.Category.Icon,
			Color: d.Category.Color,
		}
	}

	if d.Pair != nil {
		resp.Pair = &PairResponse{
			MovementID: d.Pair.MovementID,
			AccountID:  d.Pair.AccountID,
			Direction:  string(d.Pair.Direction),
		}
	}

	return resp
}

func movementKind(m *domain.Movement) string {
	if m.Kind() == domain.MovementKindTransferLeg {
		return "transfer"
	}
	return "simple"
}

// TotalsResponse sums the non-transfer movements of a listing.
type TotalsResponse struct {
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Balance decimal.Decimal `json:"balance"`
}

// MovementPageResponse represents one page of movements.
type MovementPageResponse struct {
	Items   []*MovementResponse `json:"items"`
	Total   int64               `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
	Totals  TotalsResponse      `json:"totals"`
}

// MovementPageFromDomain converts a page to response.
func MovementPageFromDomain(p *domain.MovementPage) *MovementPageResponse {
	items := make([]*MovementResponse, len(p.Items))
	for i, d := range p.Items {
		items[i] = MovementDetailFromDomain(d)
	}

	return &MovementPageResponse{
		Items:   items,
		Total:   p.Total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasMore,
		Totals: TotalsResponse{
			Inflow:  p.Totals.Inflow,
			Outflow: p.Totals.Outflow,
			Balance: p.Totals.Balance,
		},
	}
}

// TransferResponse represents a transfer in API responses.
type TransferResponse struct {
	ID          string                 `json:"id"`
	Amount      decimal.Decimal        `json:"amount"`
	Concept     string                 `json:"concept"`
	Notes       *string                `json:"notes"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Outflow     *MovementResponse      `json:"outflow"`
	Inflow      *MovementResponse      `json:"inflow"`
	Source      AccountSummaryResponse `json:"source"`
	Destination AccountSummaryResponse `json:"destination"`
}

// TransferFromDomain converts a transfer result to response.
func TransferFromDomain(r *usecase.TransferResult) *TransferResponse {
	t := r.Transfer

	return &TransferResponse{
		ID:          t.ID(),
		Amount:      t.Amount(),
		Concept:     t.Outflow.Concept,
		Notes:       t.Outflow.Notes,
		OccurredAt:  t.Outflow.OccurredAt,
		Outflow:     MovementFromDomain(t.Outflow),
		Inflow:      MovementFromDomain(t.Inflow),
		Source:      AccountSummaryFromDomain(r.Source),
		Destination: AccountSummaryFromDomain(r.Destination),
	}
}

// CategoryTotalResponse is one row of a breakdown.
type CategoryTotalResponse struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int64           `json:"count"`
}

// CategoryBreakdownResponse is the per-category spend of a month.
type CategoryBreakdownResponse struct {
	Month      int                     `json:"month"`
	Year       int                     `json:"year"`
	Total      decimal.Decimal         `json:"total"`
	Categories []CategoryTotalResponse `json:"categories"`
}

// CategoryBreakdownFromDomain converts a breakdown to response.
func CategoryBreakdownFromDomain(b *domain.CategoryBreakdown) *CategoryBreakdownResponse {
	categories := make([]CategoryTotalResponse, len(b.Categories))
	for i, c := range b.Categories {
		categories[i] = CategoryTotalResponse{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Icon:       c.Icon,
			Color:      c.Color,
			Total:      c.Total,
			Count:      c.Count,
		}
	}

	return &CategoryBreakdownResponse{
		Month:      b.Month,
		Year:       b.Year,
		Total:      b.Total,
		Categories: categories,
	}
}
