package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

// CreateMovementRequest represents a request to record a movement.
type CreateMovementRequest struct {
	AccountID  string     `json:"account_id"`
	CategoryID string     `json:"category_id"`
	Direction  string     `json:"direction"`
	Amount     string     `json:"amount"`
	Concept    string     `json:"concept"`
	Notes      *string    `json:"notes,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateMovementRequest) ToUseCaseInput() (usecase.CreateMovementInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreateMovementInput{}, err
	}

	return usecase.CreateMovementInput{
		AccountID:  r.AccountID,
		CategoryID: r.CategoryID,
		Direction:  domain.Direction(r.Direction),
		Amount:     amount,
		Concept:    r.Concept,
		Notes:      r.Notes,
		OccurredAt: timeOrZero(r.OccurredAt),
	}, nil
}

// UpdateMovementRequest carries the fields to change. Omitted fields are
// kept; "notes": "" clears the notes.
type UpdateMovementRequest struct {
	CategoryID *string    `json:"category_id,omitempty"`
	Amount     *string    `json:"amount,omitempty"`
	Concept    *string    `json:"concept,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateMovementRequest) ToUseCaseInput() (usecase.UpdateMovementInput, error) {
	amount, err := parseOptionalAmount(r.Amount)
	if err != nil {
		return usecase.UpdateMovementInput{}, err
	}

	return usecase.UpdateMovementInput{
		CategoryID: r.CategoryID,
		Amount:     amount,
		Concept:    r.Concept,
		Notes:      r.Notes,
		OccurredAt: r.OccurredAt,
	}, nil
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	SourceAccountID      string     `json:"source_account_id"`
	DestinationAccountID string     `json:"destination_account_id"`
	Amount               string     `json:"amount"`
	Concept              string     `json:"concept"`
	Notes                *string    `json:"notes,omitempty"`
	OccurredAt           *time.Time `json:"occurred_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() (usecase.CreateTransferInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreateTransferInput{}, err
	}

	return usecase.CreateTransferInput{
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		Amount:               amount,
		Concept:              r.Concept,
		Notes:                r.Notes,
		OccurredAt:           timeOrZero(r.OccurredAt),
	}, nil
}

// UpdateTransferRequest carries the shared transfer fields to change.
type UpdateTransferRequest struct {
	Amount     *string    `json:"amount,omitempty"`
	Concept    *string    `json:"concept,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateTransferRequest) ToUseCaseInput() (usecase.UpdateTransferInput, error) {
	amount, err := parseOptionalAmount(r.Amount)
	if err != nil {
		return usecase.UpdateTransferInput{}, err
	}

	return usecase.UpdateTransferInput{
		Amount:     amount,
		Concept:    r.Concept,
		Notes:      r.Notes,
		OccurredAt: r.OccurredAt,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal amount", domain.ErrInvalidAmount, s)
	}

	return amount, nil
}

func parseOptionalAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}

	amount, err := parseAmount(*s)
	if err != nil {
		return nil, err
	}

	return &amount, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
