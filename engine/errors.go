/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All engine error types in one place. The taxonomy mirrors how callers
  must react:
    1. Invalid input  - reject before mutating, nothing was written
    2. Out of range   - the referenced installment does not exist
    3. Terminal state - the installment is already paid
    4. Degenerate     - an empty schedule was produced (warn, not fatal)

  Persistence failures are NOT represented here: stores return their own
  errors and the service layer propagates them verbatim, so a failed write
  can never be mistaken for a committed one.

USAGE:
  if errors.Is(err, engine.ErrInvalidAmount) { ... }

  var oob *engine.IndexError
  if errors.As(err, &oob) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an edit supplies a negative amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is returned when a date cannot be interpreted.
	ErrInvalidDate = errors.New("invalid date")

	// ErrIndexOutOfRange is returned when an operation references an
	// installment position that does not exist in the schedule.
	ErrIndexOutOfRange = errors.New("installment index out of range")

	// ErrAlreadyPaid is returned when re-marking a paid installment.
	// A paid row is terminal: double-processing must fail loudly.
	ErrAlreadyPaid = errors.New("installment already paid")

	// ErrEmptySchedule flags the degenerate case of an installment-based
	// contract that requests zero installments. The caller should warn
	// about the data-quality condition; it is not fatal.
	ErrEmptySchedule = errors.New("no installments to generate")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDateError reports the unparseable input.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date: %q", e.Input)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// IndexError reports an out-of-range installment reference.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("installment index %d out of range (schedule has %d rows)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// AlreadyPaidError reports which row was double-processed.
type AlreadyPaidError struct {
	Numero    int
	FechaPago string
}

func (e *AlreadyPaidError) Error() string {
	return fmt.Sprintf("cuota %d already paid on %s", e.Numero, e.FechaPago)
}

func (e *AlreadyPaidError) Unwrap() error { return ErrAlreadyPaid }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrAlreadyPaid)
}

func checkIndex(cuotas []Installment, index int) error {
	if index < 0 || index >= len(cuotas) {
		return &IndexError{Index: index, Len: len(cuotas)}
	}
	return nil
}
