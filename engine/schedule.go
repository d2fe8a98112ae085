/*
schedule.go - Installment schedule generation

PURPOSE:
  Builds the initial installment list from contract terms. The schedule is
  generated exactly once per contract; afterwards rows are only mutated
  (amounts, dates, mora, payment fields), never reordered or renumbered.

AMOUNT DISTRIBUTION:
  base = floor(financed / numeroCuotas, cent)
  Every installment gets base except the last, which absorbs all cent-level
  rounding: financed - base*(n-1). The sum of regular rows is therefore
  exactly equal to the financed amount, which is the invariant every later
  redistribution preserves.

DUE DATES:
  Installment i (1-based) is due on the LAST calendar day of the month
  that is i months after the registration month. The first regular
  installment is due at the end of next month, never the current one.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// ScheduleTerms are the contract fields the generator consumes.
type ScheduleTerms struct {
	MontoTotal    decimal.Decimal
	Inicial       decimal.Decimal // zero when there is no down payment
	NumeroCuotas  int
	FechaRegistro CalendarDate
}

// Financed is the amount covered by regular installments.
func (t ScheduleTerms) Financed() decimal.Decimal {
	return t.MontoTotal.Sub(t.Inicial)
}

// Validate rejects terms that can never produce a coherent schedule.
func (t ScheduleTerms) Validate() error {
	if t.MontoTotal.IsNegative() || t.Inicial.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Inicial.GreaterThan(t.MontoTotal) {
		return ErrInvalidAmount
	}
	if t.FechaRegistro.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// GenerateSchedule builds the installment list for the given terms.
//
// NumeroCuotas <= 0 yields no regular installments. That is a data-quality
// condition on an installment-based contract, not a fatal error; callers
// detect it via len() or ErrEmptySchedule from the service layer.
func GenerateSchedule(terms ScheduleTerms) []Installment {
	var cuotas []Installment

	if terms.Inicial.IsPositive() {
		down := Installment{
			Numero:      0,
			Vencimiento: terms.FechaRegistro,
			Monto:       terms.Inicial,
			Total:       terms.Inicial,
			Estado:      StatusPending,
		}
		cuotas = append(cuotas, down)
	}

	n := terms.NumeroCuotas
	if n <= 0 {
		return cuotas
	}

	financed := terms.Financed()
	base := financed.Div(decimal.NewFromInt(int64(n))).Truncate(2)

	for i := 0; i < n; i++ {
		monto := base
		if i == n-1 {
			monto = financed.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		cuotas = append(cuotas, Installment{
			Numero:      i + 1,
			Vencimiento: MonthEndAfter(terms.FechaRegistro, i+1),
			Monto:       monto,
			Total:       monto,
			Estado:      StatusPending,
		})
	}
	return cuotas
}
