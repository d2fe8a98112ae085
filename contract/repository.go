package contract

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// REPOSITORY - Persistence interface the core consumes
// =============================================================================
// The store is a key-value store of contract aggregates: there is no
// partial-field update primitive, only whole-aggregate replace. That single
// property is what guarantees the conservation invariants survive storage -
// an interleaved per-field writer could tear a schedule in half.

// Repository is the durable store of contract aggregates.
//
// Implementations must treat Replace as atomic for one aggregate and must
// surface write failures as errors; a failed write silently reported as
// success would let callers act on state that was never committed.
type Repository interface {
	// Get returns the aggregate or ErrNotFound.
	Get(ctx context.Context, id string) (*Contract, error)

	// Replace writes the whole aggregate, creating it if absent.
	Replace(ctx context.Context, c *Contract) error

	// List returns every aggregate in the owner's scope,
	// newest registration first. Empty ownerID lists all.
	List(ctx context.Context, ownerID string) ([]*Contract, error)

	// Delete removes the aggregate and its installments with it.
	// Deleting a missing aggregate returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when operating on a contract id the
	// repository does not hold. Never silently fabricated.
	ErrNotFound = errors.New("contract not found")

	// ErrDuplicateParcel is returned when creating a contract for a
	// manzana/lote pair the owner already has a contract for.
	ErrDuplicateParcel = errors.New("parcel already has a contract")

	// ErrScheduleExists is returned when regenerating a schedule that was
	// already generated. Schedules are generated exactly once.
	ErrScheduleExists = errors.New("schedule already generated")

	// ErrNotInstallmentSale is returned when a schedule operation targets
	// a cash contract.
	ErrNotInstallmentSale = errors.New("contract is not an installment sale")
)

// ValidationError reports which aggregate field failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid contract: %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether the error indicates a missing aggregate.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is the caller's fault rather
// than a persistence failure.
func IsClientError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) ||
		errors.Is(err, ErrDuplicateParcel) ||
		errors.Is(err, ErrScheduleExists) ||
		errors.Is(err, ErrNotInstallmentSale)
}
