/*
redistribute.go - Amount and date re-balancing after manual edits

PURPOSE:
  An operator can correct one installment's amount or due date. Amount
  edits must keep the contract's financed total exactly conserved, so the
  difference always lands on the schedule's natural balancing row: the
  LAST regular installment.

  All transforms here are pure: they deep-copy the input schedule and
  return a new list. The caller persists the whole list in one atomic
  replace, which is what keeps the conservation invariant safe from
  concurrent partial writes.

EDIT SEMANTICS:
  ApplyUniformAmount   every regular row except the last gets the new
                       amount; the last row is recomputed from the financed
                       total.
  ApplySingleAmount    one row changes; the difference (old - new) moves to
                       the last regular row, clamped at zero. Editing the
                       last row itself transfers nothing. Applying the same
                       edit twice is a no-op the second time (diff = 0).
  ApplySingleDate      one row's due date changes, nothing else.
  ApplyCascadingDate   the edited row gets the exact chosen date; every
                       later row re-aligns to month-end cadence counted
                       from that anchor.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// ApplyUniformAmount sets every regular installment except the last to
// newAmount and rebalances the last one so the regular rows still sum to
// financed. Totals are recomputed against each row's stored mora.
func ApplyUniformAmount(cuotas []Installment, financed, newAmount decimal.Decimal) ([]Installment, error) {
	if newAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	out := CloneSchedule(cuotas)
	n := RegularCount(out)
	if n == 0 {
		return out, nil
	}

	for idx := range out {
		if out[idx].Numero > 0 && out[idx].Numero < n {
			out[idx].Monto = newAmount
			out[idx].RecomputeTotal()
		}
	}

	last := lastRegularIndex(out)
	out[last].Monto = financed.Sub(newAmount.Mul(decimal.NewFromInt(int64(n - 1))))
	out[last].RecomputeTotal()
	return out, nil
}

// ApplySingleAmount overrides one installment's amount and transfers the
// difference to the last regular installment so the financed total is
// preserved. The last row is clamped at zero and rounded to the cent; when
// the edited row IS the last row, no transfer occurs.
func ApplySingleAmount(cuotas []Installment, index int, newAmount decimal.Decimal) ([]Installment, error) {
	if newAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if err := checkIndex(cuotas, index); err != nil {
		return nil, err
	}

	out := CloneSchedule(cuotas)
	oldAmount := out[index].Monto
	out[index].Monto = newAmount
	out[index].RecomputeTotal()

	diff := oldAmount.Sub(newAmount) // positive: add to last, negative: subtract
	last := lastRegularIndex(out)
	if last >= 0 && last != index && !diff.IsZero() {
		rebalanced := out[last].Monto.Add(diff).Round(2)
		if rebalanced.IsNegative() {
			rebalanced = decimal.Zero
		}
		out[last].Monto = rebalanced
		out[last].RecomputeTotal()
	}
	return out, nil
}

// ApplySingleDate re-dates a single installment.
func ApplySingleDate(cuotas []Installment, index int, newDate CalendarDate) ([]Installment, error) {
	if newDate.IsZero() {
		return nil, ErrInvalidDate
	}
	if err := checkIndex(cuotas, index); err != nil {
		return nil, err
	}
	out := CloneSchedule(cuotas)
	out[index].Vencimiento = newDate
	return out, nil
}

// ApplyCascadingDate anchors the edited installment at the exact chosen
// date and re-dates every later installment to the last calendar day of
// the month that is (position - index) months after the anchor's month.
// Installments before the anchor are untouched.
func ApplyCascadingDate(cuotas []Installment, index int, newDate CalendarDate) ([]Installment, error) {
	if newDate.IsZero() {
		return nil, ErrInvalidDate
	}
	if err := checkIndex(cuotas, index); err != nil {
		return nil, err
	}

	out := CloneSchedule(cuotas)
	for idx := range out {
		if idx < index {
			continue
		}
		if idx == index {
			out[idx].Vencimiento = newDate
			continue
		}
		out[idx].Vencimiento = MonthEndAfter(newDate, idx-index)
	}
	return out, nil
}

// ApplyManualMora freezes an installment's late fee at an operator-chosen
// value. An explicit zero is a valid override and stays sticky: no display
// or payment path may replace it with a computed fee.
func ApplyManualMora(cuotas []Installment, index int, amount decimal.Decimal) ([]Installment, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if err := checkIndex(cuotas, index); err != nil {
		return nil, err
	}
	out := CloneSchedule(cuotas)
	out[index].Mora = ManualMora(amount)
	out[index].RecomputeTotal()
	return out, nil
}
