package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementFilter narrows movement listings. Zero values mean "any".
type MovementFilter struct {
	AccountID  string
	CategoryID string
	// Direction set excludes transfer legs.
	Direction Direction
	From      *time.Time
	To        *time.Time
}

// ExcludesTransfers reports whether transfer legs are filtered out.
func (f MovementFilter) ExcludesTransfers() bool {
	return f.Direction != ""
}

// PeriodTotals sums non-transfer movements for a filter.
type PeriodTotals struct {
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Balance decimal.Decimal
}

// NewPeriodTotals fills Balance from inflow and outflow.
func NewPeriodTotals(inflow, outflow decimal.Decimal) PeriodTotals {
	return PeriodTotals{
		Inflow:  inflow,
		Outflow: outflow,
		Balance: inflow.Sub(outflow),
	}
}

// MovementPage is one page of a filtered listing.
type MovementPage struct {
	Items   []*MovementDetail
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
	Totals  PeriodTotals
}

// CategoryTotal aggregates one category's outflows for a period.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Icon       string
	Color      string
	Total      decimal.Decimal
	Count      int64
}

// CategoryBreakdown is the per-category spend for one month.
type CategoryBreakdown struct {
	Month      int
	Year       int
	Categories []CategoryTotal
	Total      decimal.Decimal
}
