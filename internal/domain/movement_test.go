package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMovement_SignedAmount(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		amount    decimal.Decimal
		want      decimal.Decimal
	}{
		{
			name:      "inflow adds",
			direction: DirectionInflow,
			amount:    decimal.NewFromInt(100),
			want:      decimal.NewFromInt(100),
		},
		{
			name:      "outflow subtracts",
			direction: DirectionOutflow,
			amount:    decimal.RequireFromString("12.34"),
			want:      decimal.RequireFromString("-12.34"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Movement{Direction: tt.direction, Amount: tt.amount}
			if got := m.SignedAmount(); !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMovement_AmountChangeDelta(t *testing.T) {
	outflow := &Movement{Direction: DirectionOutflow, Amount: decimal.NewFromInt(100)}

	// reversing -100 and applying -40 is a single +60
	if got := outflow.AmountChangeDelta(decimal.NewFromInt(40)); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected delta 60, got %s", got)
	}

	inflow := &Movement{Direction: DirectionInflow, Amount: decimal.NewFromInt(100)}
	if got := inflow.AmountChangeDelta(decimal.NewFromInt(250)); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected delta 150, got %s", got)
	}

	if got := inflow.AmountChangeDelta(decimal.NewFromInt(100)); !got.IsZero() {
		t.Errorf("expected zero delta for unchanged amount, got %s", got)
	}
}

func TestMovement_Kind(t *testing.T) {
	simple := &Movement{}
	if simple.Kind() != MovementKindSimple || simple.IsTransfer() {
		t.Errorf("expected simple movement")
	}

	leg := &Movement{Transfer: &TransferLink{CounterAccountID: "acc-2"}}
	if leg.Kind() != MovementKindTransferLeg || !leg.IsTransfer() {
		t.Errorf("expected transfer leg")
	}
}

func TestMovement_Validate(t *testing.T) {
	m := &Movement{Direction: "sideways", Amount: decimal.NewFromInt(1)}
	if err := m.Validate(); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}

	m.Direction = DirectionInflow
	m.Amount = decimal.Zero
	if err := m.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not found", err: ErrAccountNotFound, want: KindNotFound},
		{name: "bad request", err: ErrCurrencyMismatch, want: KindBadRequest},
		{name: "integrity wins over wrapped not found", err: errors.Join(ErrBalanceTargetGone, ErrAccountNotFound), want: KindIntegrity},
		{name: "unclassified", err: errors.New("db down"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}
