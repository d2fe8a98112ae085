/*
mora.go - Late-fee accrual

PURPOSE:
  Computes the late fee ("mora") accrued by an unpaid installment as of a
  given date. The fee schedule is tiered:

    days overdue <= 5        no fee (grace window)
    6 <= days overdue <= 14  1.0% of the amount per day past the grace window
    days overdue >= 15       the full 9 days at 1.0%, then 1.5% per day

  CalculateMora is pure and idempotent: same inputs, same output. The
  apparent fee of an unpaid installment therefore grows monotonically as
  "today" advances; freezing happens at payment time or by operator
  override (see payment.go and Mora in types.go).
*/
package engine

import "github.com/shopspring/decimal"

// Late-fee tier constants.
const (
	moraGraceDays    = 5
	moraFirstTierEnd = 14
)

var (
	moraDailyRate       = decimal.NewFromFloat(0.01)  // days 6-14
	moraEscalatedRate   = decimal.NewFromFloat(0.015) // day 15 onward
	moraFirstTierFactor = decimal.NewFromInt(moraFirstTierEnd - moraGraceDays).Mul(moraDailyRate)
)

// CalculateMora returns the late fee accrued on an installment of the given
// amount and due date as of today. Negative or zero days overdue fall in
// the grace window. It must never be applied to the down-payment row
// (numero 0), which does not accrue fees.
func CalculateMora(vencimiento CalendarDate, monto decimal.Decimal, today CalendarDate) decimal.Decimal {
	daysOverdue := DaysBetween(vencimiento, today)
	if daysOverdue <= moraGraceDays {
		return decimal.Zero
	}

	var rate decimal.Decimal
	if daysOverdue <= moraFirstTierEnd {
		rate = decimal.NewFromInt(int64(daysOverdue - moraGraceDays)).Mul(moraDailyRate)
	} else {
		escalated := decimal.NewFromInt(int64(daysOverdue - moraFirstTierEnd)).Mul(moraEscalatedRate)
		rate = moraFirstTierFactor.Add(escalated)
	}
	return monto.Mul(rate)
}

// DisplayMora resolves the fee shown for an installment. Frozen values
// (manual overrides and payment-time snapshots) always win; otherwise the
// fee is derived against today. The down-payment row never accrues.
func DisplayMora(inst Installment, today CalendarDate) decimal.Decimal {
	if inst.Mora.Frozen {
		return inst.Mora.Amount
	}
	if inst.IsDownPayment() || inst.Estado == StatusPaid {
		return decimal.Zero
	}
	return CalculateMora(inst.Vencimiento, inst.Monto, today)
}

// DisplayTotal is the amount effectively owed for a row as of today:
// principal plus the resolved fee.
func DisplayTotal(inst Installment, today CalendarDate) decimal.Decimal {
	return inst.Monto.Add(DisplayMora(inst, today))
}
