package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is the aggregate persisted as two mirrored movements.
type Transfer struct {
	Outflow *Movement
	Inflow  *Movement
}

// NewTransfer assembles a transfer from its two legs in any order and
// verifies they describe the same money movement.
func NewTransfer(a, b *Movement) (*Transfer, error) {
	if a == nil || b == nil || !a.IsTransfer() || !b.IsTransfer() {
		return nil, ErrBrokenTransfer
	}

	t := &Transfer{Outflow: a, Inflow: b}
	if a.Direction == DirectionInflow {
		t.Outflow, t.Inflow = b, a
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks the pairing invariants between the legs.
func (t *Transfer) Validate() error {
	out, in := t.Outflow, t.Inflow

	switch {
	case out.Direction != DirectionOutflow || in.Direction != DirectionInflow:
		return fmt.Errorf("%w: legs %s and %s share a direction", ErrBrokenTransfer, out.ID, in.ID)
	case out.Transfer.PairID != in.ID || in.Transfer.PairID != out.ID:
		return fmt.Errorf("%w: legs %s and %s do not reference each other", ErrBrokenTransfer, out.ID, in.ID)
	case out.Transfer.CounterAccountID != in.AccountID || in.Transfer.CounterAccountID != out.AccountID:
		return fmt.Errorf("%w: counter accounts of %s and %s are crossed wrong", ErrBrokenTransfer, out.ID, in.ID)
	case !out.Amount.Equal(in.Amount):
		return fmt.Errorf("%w: leg amounts differ (%s vs %s)", ErrBrokenTransfer, out.Amount, in.Amount)
	}

	return nil
}

// ID identifies the transfer by its outflow leg.
func (t *Transfer) ID() string {
	return t.Outflow.ID
}

// Amount moved from source to destination.
func (t *Transfer) Amount() decimal.Decimal {
	return t.Outflow.Amount
}

// SourceAccountID is the debited account.
func (t *Transfer) SourceAccountID() string {
	return t.Outflow.AccountID
}

// DestinationAccountID is the credited account.
func (t *Transfer) DestinationAccountID() string {
	return t.Inflow.AccountID
}

// Legs returns both movements, outflow first.
func (t *Transfer) Legs() []*Movement {
	return []*Movement{t.Outflow, t.Inflow}
}

// TransferFields are the values both legs always share.
type TransferFields struct {
	Amount     decimal.Decimal
	Concept    string
	Notes      *string
	OccurredAt time.Time
}

// Apply writes the shared fields onto both legs.
func (t *Transfer) Apply(f TransferFields, now time.Time) {
	for _, leg := range t.Legs() {
		leg.Amount = f.Amount
		leg.Concept = f.Concept
		leg.Notes = f.Notes
		leg.OccurredAt = f.OccurredAt
		leg.UpdatedAt = now
	}
}

// Fields returns the shared values currently held by the transfer.
func (t *Transfer) Fields() TransferFields {
	return TransferFields{
		Amount:     t.Outflow.Amount,
		Concept:    t.Outflow.Concept,
		Notes:      t.Outflow.Notes,
		OccurredAt: t.Outflow.OccurredAt,
	}
}
