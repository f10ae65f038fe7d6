package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge  = fmt.Errorf("%w: amount exceeds maximum allowed", ErrBadRequest)
	ErrAmountTooSmall  = fmt.Errorf("%w: amount below minimum allowed", ErrBadRequest)
	ErrInvalidConcept  = fmt.Errorf("%w: invalid concept", ErrBadRequest)
	ErrNotesTooLong    = fmt.Errorf("%w: notes too long", ErrBadRequest)
	ErrInvalidDateSpan = fmt.Errorf("%w: date range ends before it starts", ErrBadRequest)
)

// Validation constants
const (
	MaxConceptLength = 120
	MaxNotesLength   = 1000
	MaxAmount        = "1000000000000" // 1 trillion
	MinAmount        = "0.01"
	MaxAmountScale   = 4 // matches NUMERIC(20, 4)
	MinYear          = 1970
	MaxYear          = 9999
)

var (
	minAmount = decimal.RequireFromString(MinAmount)
	maxAmount = decimal.RequireFromString(MaxAmount)
)

// ValidateAmount validates a movement or transfer amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: amount must have at most %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidateConcept validates the short label of a movement
func ValidateConcept(concept string) error {
	concept = strings.TrimSpace(concept)

	if concept == "" {
		return fmt.Errorf("%w: concept cannot be empty", ErrInvalidConcept)
	}

	if utf8.RuneCountInString(concept) > MaxConceptLength {
		return fmt.Errorf("%w: concept exceeds %d characters", ErrInvalidConcept, MaxConceptLength)
	}

	return nil
}

// ValidateNotes validates optional free-text notes
func ValidateNotes(notes *string) error {
	if notes == nil {
		return nil
	}

	if utf8.RuneCountInString(*notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrNotesTooLong, MaxNotesLength)
	}

	return nil
}

// ValidateDateRange checks that an inclusive range is ordered.
func ValidateDateRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return ErrInvalidDateSpan
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// MonthBounds returns the first and last instant of a calendar month in UTC.
func MonthBounds(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %d is not between 1 and 12", ErrInvalidPeriod, month)
	}

	if year < MinYear || year > MaxYear {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: year %d is out of range", ErrInvalidPeriod, year)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	return start, end, nil
}
