package engine

import "github.com/shopspring/decimal"

// =============================================================================
// DERIVED STATUS - Read-only view projection
// =============================================================================
// Stored estado only ever holds pending/paid. "Overdue" is derived at view
// time from the due date, so it never needs a background job to stay fresh.

// DerivedStatus is what dashboards and lists display.
type DerivedStatus string

const (
	DerivedPending DerivedStatus = "pending"
	DerivedPaid    DerivedStatus = "paid"
	DerivedOverdue DerivedStatus = "overdue"
)

// IsOverdue reports whether a pending regular installment's due date has
// passed. The down-payment row is never overdue. Calendar-day comparison,
// not time-of-day.
func IsOverdue(inst Installment, today CalendarDate) bool {
	return inst.Estado == StatusPending &&
		inst.Numero > 0 &&
		inst.Vencimiento.Before(today)
}

// Classify resolves the display status of an installment as of today.
func Classify(inst Installment, today CalendarDate) DerivedStatus {
	if inst.Estado == StatusPaid {
		return DerivedPaid
	}
	if IsOverdue(inst, today) {
		return DerivedOverdue
	}
	return DerivedPending
}

// =============================================================================
// SCHEDULE SUMMARY - Aggregate projection over one schedule
// =============================================================================

// ScheduleSummary is the per-contract rollup consumed by dashboards.
// Down-payment rows are excluded: only regular installments count.
type ScheduleSummary struct {
	TotalCuotas   int
	Pagadas       int
	Pendientes    int
	Vencidas      int
	MontoPagado   decimal.Decimal
	MontoPendiente decimal.Decimal
	MoraAcumulada decimal.Decimal
}

// Summarize computes the rollup for one schedule as of today. Mora for
// unpaid rows is the dynamically derived value; paid rows contribute their
// frozen fee.
func Summarize(cuotas []Installment, today CalendarDate) ScheduleSummary {
	s := ScheduleSummary{
		MontoPagado:    decimal.Zero,
		MontoPendiente: decimal.Zero,
		MoraAcumulada:  decimal.Zero,
	}
	for _, c := range cuotas {
		if c.Numero == 0 {
			continue
		}
		s.TotalCuotas++
		s.MoraAcumulada = s.MoraAcumulada.Add(DisplayMora(c, today))
		switch Classify(c, today) {
		case DerivedPaid:
			s.Pagadas++
			s.MontoPagado = s.MontoPagado.Add(c.Monto)
		case DerivedOverdue:
			s.Vencidas++
			s.MontoPendiente = s.MontoPendiente.Add(c.Monto)
		default:
			s.Pendientes++
			s.MontoPendiente = s.MontoPendiente.Add(c.Monto)
		}
	}
	return s
}
