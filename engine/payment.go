package engine

import "github.com/shopspring/decimal"

// MarkPaid records a payment against one installment and freezes its late
// fee at that moment:
//
//   - the down-payment row is always recorded with mora 0
//   - an already-frozen fee (manual override, including an explicit zero,
//     or a prior snapshot) is kept verbatim
//   - otherwise the fee is computed once against today and stored as a
//     non-manual snapshot
//
// The row's total, payment date, and estado are updated; a paid row is
// terminal and re-marking it fails with AlreadyPaidError.
func MarkPaid(cuotas []Installment, index int, paymentDate, today CalendarDate) ([]Installment, error) {
	if err := checkIndex(cuotas, index); err != nil {
		return nil, err
	}
	if paymentDate.IsZero() {
		return nil, ErrInvalidDate
	}

	out := CloneSchedule(cuotas)
	row := &out[index]

	if row.Estado == StatusPaid {
		paidOn := ""
		if row.FechaPago != nil {
			paidOn = row.FechaPago.ISO()
		}
		return nil, &AlreadyPaidError{Numero: row.Numero, FechaPago: paidOn}
	}

	switch {
	case row.IsDownPayment():
		row.Mora = FrozenMora(decimal.Zero)
	case row.Mora.Frozen:
		// keep frozen value, manual or snapshot
	default:
		row.Mora = FrozenMora(CalculateMora(row.Vencimiento, row.Monto, today))
	}

	row.RecomputeTotal()
	fp := paymentDate
	row.FechaPago = &fp
	row.Estado = StatusPaid
	return out, nil
}
