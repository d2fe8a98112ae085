/*
stats.go - Dashboard read models

PURPOSE:
  Thin read-only projections over the stored aggregates: per-month
  collection stats and a forward projection of expected income. These
  consume the engine's computed fields (mora, total, derived status) and
  never write anything back.

  Cash ("contado") contracts are excluded from installment stats, and the
  down-payment row (numero 0) never counts as a regular installment.
*/
package contract

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solterra/cobranza/engine"
)

// MonthlyStats is the collection picture for one calendar month.
type MonthlyStats struct {
	Year  int
	Month time.Month

	// Cuotas due in the month.
	TotalCuotas      int
	CuotasPagadas    int
	MontoPagadas     decimal.Decimal
	CuotasPendientes int
	MontoPendientes  decimal.Decimal
	CuotasVencidas   int
	MontoVencidas    decimal.Decimal

	// Cuotas paid during the month ahead of a later due date.
	CuotasAdelantadas int
	MontoAdelantadas  decimal.Decimal

	// Projected = everything due in the month; Ingresado = what actually
	// came in during it (on-time, late, and advance payments).
	MontoProyectado decimal.Decimal
	MontoIngresado  decimal.Decimal

	PorcentajePagadas   float64
	PorcentajeIngresado float64
}

// MonthlyStats aggregates the owner's installment contracts for one month.
func (s *Service) MonthlyStats(ctx context.Context, ownerID string, year int, month time.Month) (*MonthlyStats, error) {
	all, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	today := s.Clock()
	st := &MonthlyStats{
		Year:             year,
		Month:            month,
		MontoPagadas:     decimal.Zero,
		MontoPendientes:  decimal.Zero,
		MontoVencidas:    decimal.Zero,
		MontoAdelantadas: decimal.Zero,
		MontoProyectado:  decimal.Zero,
		MontoIngresado:   decimal.Zero,
	}

	for _, c := range all {
		if !c.IsInstallmentSale() {
			continue
		}
		for _, cuota := range c.Cuotas {
			if cuota.Numero == 0 {
				continue
			}

			dueInMonth := cuota.Vencimiento.Year() == year && cuota.Vencimiento.Month() == month
			if dueInMonth {
				st.TotalCuotas++
				st.MontoProyectado = st.MontoProyectado.Add(cuota.Monto)

				switch engine.Classify(cuota, today) {
				case engine.DerivedPaid:
					st.CuotasPagadas++
					st.MontoPagadas = st.MontoPagadas.Add(cuota.Monto)
					st.MontoIngresado = st.MontoIngresado.Add(cuota.Monto)
				case engine.DerivedOverdue:
					st.CuotasVencidas++
					st.MontoVencidas = st.MontoVencidas.Add(cuota.Monto)
					st.CuotasPendientes++
					st.MontoPendientes = st.MontoPendientes.Add(cuota.Monto)
				default:
					st.CuotasPendientes++
					st.MontoPendientes = st.MontoPendientes.Add(cuota.Monto)
				}
			}

			// Advance payments: paid during this month against a later due
			// date. They count as income for the month they were paid in.
			if cuota.FechaPago != nil {
				paidInMonth := cuota.FechaPago.Year() == year && cuota.FechaPago.Month() == month
				if paidInMonth && cuota.Vencimiento.After(*cuota.FechaPago) && !dueInMonth {
					st.CuotasAdelantadas++
					st.MontoAdelantadas = st.MontoAdelantadas.Add(cuota.Monto)
					st.MontoIngresado = st.MontoIngresado.Add(cuota.Monto)
				}
			}
		}
	}

	if st.TotalCuotas > 0 {
		st.PorcentajePagadas = float64(st.CuotasPagadas) / float64(st.TotalCuotas) * 100
	}
	if st.MontoProyectado.IsPositive() {
		ratio, _ := st.MontoIngresado.Div(st.MontoProyectado).Mul(decimal.NewFromInt(100)).Float64()
		st.PorcentajeIngresado = ratio
	}
	return st, nil
}

// =============================================================================
// PROJECTION
// =============================================================================

// MonthProjection is the expected income for one calendar month.
type MonthProjection struct {
	Year   int
	Month  time.Month
	Cuotas int
	Monto  decimal.Decimal
}

// ProjectionReport is the month-by-month expectation over a date range.
type ProjectionReport struct {
	From            engine.CalendarDate
	To              engine.CalendarDate
	Months          []MonthProjection
	TotalProyectado decimal.Decimal
}

// Projection sums pending regular installments due in [from, to], grouped
// by month in chronological order.
func (s *Service) Projection(ctx context.Context, ownerID string, from, to engine.CalendarDate) (*ProjectionReport, error) {
	all, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	type bucket struct{ year, month int }
	byMonth := make(map[bucket]*MonthProjection)
	total := decimal.Zero

	for _, c := range all {
		if !c.IsInstallmentSale() {
			continue
		}
		for _, cuota := range c.Cuotas {
			if cuota.Numero == 0 || cuota.Estado == engine.StatusPaid {
				continue
			}
			if cuota.Vencimiento.Before(from) || cuota.Vencimiento.After(to) {
				continue
			}
			k := bucket{cuota.Vencimiento.Year(), int(cuota.Vencimiento.Month())}
			mp, ok := byMonth[k]
			if !ok {
				mp = &MonthProjection{
					Year:  k.year,
					Month: time.Month(k.month),
					Monto: decimal.Zero,
				}
				byMonth[k] = mp
			}
			mp.Cuotas++
			mp.Monto = mp.Monto.Add(cuota.Monto)
			total = total.Add(cuota.Monto)
		}
	}

	report := &ProjectionReport{From: from, To: to, TotalProyectado: total}
	cursor := engine.NewDate(from.Year(), from.Month(), 1)
	for !cursor.After(to) {
		if mp, ok := byMonth[bucket{cursor.Year(), int(cursor.Month())}]; ok {
			report.Months = append(report.Months, *mp)
		}
		cursor = cursor.AddMonths(1)
	}
	return report, nil
}
