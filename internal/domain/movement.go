package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a movement relative to its account.
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionInflow || d == DirectionOutflow
}

// Sign returns +1 for inflows and -1 for outflows.
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionOutflow {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionOutflow {
		return DirectionInflow
	}
	return DirectionOutflow
}

// MovementKind tells simple entries apart from transfer legs.
type MovementKind int

const (
	MovementKindSimple MovementKind = iota
	MovementKindTransferLeg
)

// TransferLink is present only on transfer legs.
type TransferLink struct {
	CounterAccountID string
	// PairID is empty only between inserting the outflow leg and patching it
	// inside the creating transaction.
	PairID string
}

// Movement is a single ledger entry against one account.
type Movement struct {
	ID         string
	UserID     string
	AccountID  string
	Direction  Direction
	CategoryID string
	Amount     decimal.Decimal
	Concept    string
	Notes      *string
	OccurredAt time.Time
	Transfer   *TransferLink
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Kind returns the movement variant.
func (m *Movement) Kind() MovementKind {
	if m.Transfer != nil {
		return MovementKindTransferLeg
	}
	return MovementKindSimple
}

// IsTransfer reports whether m is one leg of a transfer.
func (m *Movement) IsTransfer() bool {
	return m.Kind() == MovementKindTransferLeg
}

// SignedAmount is the movement's contribution to its account balance.
func (m *Movement) SignedAmount() decimal.Decimal {
	return signed(m.Direction, m.Amount)
}

// AmountChangeDelta is the single balance delta that reverses the current
// contribution and applies the one for newAmount.
func (m *Movement) AmountChangeDelta(newAmount decimal.Decimal) decimal.Decimal {
	return signed(m.Direction, newAmount).Sub(m.SignedAmount())
}

// Validate checks the fields every movement must carry.
func (m *Movement) Validate() error {
	if !m.Direction.IsValid() {
		return ErrInvalidDirection
	}
	return ValidateAmount(m.Amount)
}

func signed(d Direction, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(d.Sign())
}

// PairSummary describes the opposite leg of a transfer.
type PairSummary struct {
	MovementID string
	AccountID  string
	Direction  Direction
}

// MovementDetail is a movement joined with its account and category.
type MovementDetail struct {
	Movement *Movement
	Account  AccountSummary
	// Category is nil when the category was deleted after the movement
	// was recorded.
	Category *CategorySummary
	Pair     *PairSummary
}
