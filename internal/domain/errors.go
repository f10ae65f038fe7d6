package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every ledger error wraps exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrIntegrity  = errors.New("ledger integrity violation")
)

var (
	// Lookup errors
	ErrAccountNotFound  = fmt.Errorf("account %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrMovementNotFound = fmt.Errorf("movement %w", ErrNotFound)
	ErrTransferNotFound = fmt.Errorf("transfer %w", ErrNotFound)
	ErrPairNotFound     = fmt.Errorf("transfer pair %w", ErrNotFound)

	// Business rule errors
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrBadRequest)
	ErrInvalidDirection    = fmt.Errorf("%w: direction must be inflow or outflow", ErrBadRequest)
	ErrSameAccount         = fmt.Errorf("%w: cannot transfer to same account", ErrBadRequest)
	ErrCurrencyMismatch    = fmt.Errorf("%w: cannot transfer between different currencies", ErrBadRequest)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrBadRequest)
	ErrTransferLegEdit     = fmt.Errorf("%w: transfer legs can only be edited through the transfer", ErrBadRequest)
	ErrUnpairedTransfer    = fmt.Errorf("%w: transfer leg has no pair", ErrBadRequest)
	ErrInvalidPeriod       = fmt.Errorf("%w: invalid period", ErrBadRequest)

	// Integrity faults
	ErrBrokenTransfer    = fmt.Errorf("%w: transfer legs are inconsistent", ErrIntegrity)
	ErrBalanceTargetGone = fmt.Errorf("%w: balance target account disappeared", ErrIntegrity)
)

// Kind is the classification callers translate into transport responses.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

// KindOf classifies err. Integrity wins over the other kinds because an
// integrity fault may carry the lookup error that exposed it.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	default:
		return KindInternal
	}
}
