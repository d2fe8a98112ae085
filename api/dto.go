/*
dto.go - Request and response shapes for the HTTP API

PURPOSE:
  Decouples the wire contract from the internal aggregate. Responses carry
  DERIVED values the aggregate does not store: per-cuota display mora and
  total as of today, the view-time estado (pending/paid/overdue), and the
  per-contract rollup.

NAMING CONVENTION:
  - *DTO: response types
  - *Request: request body types

  Field names keep the historical Spanish wire vocabulary (monto, cuota,
  mora, vencimiento) so existing clients keep working unchanged.

SEE ALSO:
  - handlers.go: fills these from the service layer
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/engine"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CuotaDTO is one installment row with its display values resolved.
type CuotaDTO struct {
	Numero      int             `json:"numero"`
	Vencimiento string          `json:"vencimiento"`
	Monto       decimal.Decimal `json:"monto"`
	Mora        decimal.Decimal `json:"mora"`
	ManualMora  bool            `json:"manualMora,omitempty"`
	Total       decimal.Decimal `json:"total"`
	FechaPago   *string         `json:"fechaPago,omitempty"`
	Estado      string          `json:"estado"`
	Voucher     []string        `json:"voucher,omitempty"`
	Boleta      []string        `json:"boleta,omitempty"`
}

// ResumenDTO is the per-contract schedule rollup.
type ResumenDTO struct {
	TotalCuotas    int             `json:"totalCuotas"`
	Pagadas        int             `json:"pagadas"`
	Pendientes     int             `json:"pendientes"`
	Vencidas       int             `json:"vencidas"`
	MontoPagado    decimal.Decimal `json:"montoPagado"`
	MontoPendiente decimal.Decimal `json:"montoPendiente"`
	MoraAcumulada  decimal.Decimal `json:"moraAcumulada"`
}

// ContractDTO is a contract in API responses.
type ContractDTO struct {
	ID       string `json:"id"`
	Nombre1  string `json:"nombre1"`
	Dni1     string `json:"dni1"`
	Celular1 string `json:"celular1,omitempty"`
	Email1   string `json:"email1,omitempty"`
	Nombre2  string `json:"nombre2,omitempty"`
	Dni2     string `json:"dni2,omitempty"`
	Celular2 string `json:"celular2,omitempty"`
	Email2   string `json:"email2,omitempty"`

	Manzana string  `json:"manzana"`
	Lote    string  `json:"lote"`
	Metraje float64 `json:"metraje"`

	MontoTotal    decimal.Decimal `json:"montoTotal"`
	FormaPago     string          `json:"formaPago"`
	Inicial       decimal.Decimal `json:"inicial"`
	NumeroCuotas  int             `json:"numeroCuotas,omitempty"`
	FechaRegistro string          `json:"fechaRegistro"`
	UserID        string          `json:"userId,omitempty"`

	Cuotas  []CuotaDTO  `json:"cuotas"`
	Resumen *ResumenDTO `json:"resumen,omitempty"`
}

// MonthlyStatsDTO is the collection picture for one month.
type MonthlyStatsDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	TotalCuotas      int             `json:"totalCuotas"`
	CuotasPagadas    int             `json:"cuotasPagadas"`
	MontoPagadas     decimal.Decimal `json:"montoPagadas"`
	CuotasPendientes int             `json:"cuotasPendientes"`
	MontoPendientes  decimal.Decimal `json:"montoPendientes"`
	CuotasVencidas   int             `json:"cuotasVencidas"`
	MontoVencidas    decimal.Decimal `json:"montoVencidas"`

	CuotasAdelantadas int             `json:"cuotasAdelantadas"`
	MontoAdelantadas  decimal.Decimal `json:"montoAdelantadas"`

	MontoProyectado decimal.Decimal `json:"montoProyectado"`
	MontoIngresado  decimal.Decimal `json:"montoIngresado"`

	PorcentajePagadas   float64 `json:"porcentajePagadas"`
	PorcentajeIngresado float64 `json:"porcentajeIngresado"`
}

// MonthProjectionDTO is one month of expected income.
type MonthProjectionDTO struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Cuotas int             `json:"cuotas"`
	Monto  decimal.Decimal `json:"monto"`
}

// ProjectionDTO is the month-by-month income expectation over a range.
type ProjectionDTO struct {
	From            string               `json:"from"`
	To              string               `json:"to"`
	Months          []MonthProjectionDTO `json:"months"`
	TotalProyectado decimal.Decimal      `json:"totalProyectado"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ContractRequest creates or updates a contract. Terms fields are ignored
// on update: a generated schedule pins them.
type ContractRequest struct {
	Nombre1  string `json:"nombre1"`
	Dni1     string `json:"dni1"`
	Celular1 string `json:"celular1"`
	Email1   string `json:"email1"`
	Nombre2  string `json:"nombre2"`
	Dni2     string `json:"dni2"`
	Celular2 string `json:"celular2"`
	Email2   string `json:"email2"`

	Manzana string  `json:"manzana"`
	Lote    string  `json:"lote"`
	Metraje float64 `json:"metraje"`

	MontoTotal    decimal.Decimal `json:"montoTotal"`
	FormaPago     string          `json:"formaPago"`
	Inicial       decimal.Decimal `json:"inicial"`
	NumeroCuotas  int             `json:"numeroCuotas"`
	FechaRegistro string          `json:"fechaRegistro"`
	UserID        string          `json:"userId"`
}

// AmountRequest carries a new installment amount.
type AmountRequest struct {
	Monto decimal.Decimal `json:"monto"`
}

// DateRequest re-dates an installment; Propagate re-aligns later rows.
type DateRequest struct {
	Fecha     string `json:"fecha"`
	Propagate bool   `json:"propagate"`
}

// MoraRequest freezes an installment's late fee at an explicit value.
type MoraRequest struct {
	Mora decimal.Decimal `json:"mora"`
}

// PaymentRequest records a payment.
type PaymentRequest struct {
	FechaPago string `json:"fechaPago"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toCuotaDTO(inst engine.Installment, today engine.CalendarDate) CuotaDTO {
	dto := CuotaDTO{
		Numero:      inst.Numero,
		Vencimiento: inst.Vencimiento.ISO(),
		Monto:       inst.Monto,
		Mora:        engine.DisplayMora(inst, today),
		ManualMora:  inst.Mora.Manual,
		Total:       engine.DisplayTotal(inst, today),
		Estado:      string(engine.Classify(inst, today)),
		Voucher:     inst.Voucher,
		Boleta:      inst.Boleta,
	}
	if inst.FechaPago != nil {
		iso := inst.FechaPago.ISO()
		dto.FechaPago = &iso
	}
	return dto
}

func toContractDTO(c *contract.Contract, today engine.CalendarDate) ContractDTO {
	dto := ContractDTO{
		ID:            c.ID,
		Nombre1:       c.Nombre1,
		Dni1:          c.Dni1,
		Celular1:      c.Celular1,
		Email1:        c.Email1,
		Nombre2:       c.Nombre2,
		Dni2:          c.Dni2,
		Celular2:      c.Celular2,
		Email2:        c.Email2,
		Manzana:       c.Manzana,
		Lote:          c.Lote,
		Metraje:       c.Metraje,
		MontoTotal:    c.MontoTotal,
		FormaPago:     string(c.FormaPago),
		Inicial:       c.Inicial,
		NumeroCuotas:  c.NumeroCuotas,
		FechaRegistro: c.FechaRegistro.ISO(),
		UserID:        c.OwnerID,
		Cuotas:        make([]CuotaDTO, 0, len(c.Cuotas)),
	}
	for _, inst := range c.Cuotas {
		dto.Cuotas = append(dto.Cuotas, toCuotaDTO(inst, today))
	}
	if c.IsInstallmentSale() {
		s := engine.Summarize(c.Cuotas, today)
		dto.Resumen = &ResumenDTO{
			TotalCuotas:    s.TotalCuotas,
			Pagadas:        s.Pagadas,
			Pendientes:     s.Pendientes,
			Vencidas:       s.Vencidas,
			MontoPagado:    s.MontoPagado,
			MontoPendiente: s.MontoPendiente,
			MoraAcumulada:  s.MoraAcumulada,
		}
	}
	return dto
}

func toMonthlyStatsDTO(st *contract.MonthlyStats) MonthlyStatsDTO {
	return MonthlyStatsDTO{
		Year:                st.Year,
		Month:               int(st.Month),
		TotalCuotas:         st.TotalCuotas,
		CuotasPagadas:       st.CuotasPagadas,
		MontoPagadas:        st.MontoPagadas,
		CuotasPendientes:    st.CuotasPendientes,
		MontoPendientes:     st.MontoPendientes,
		CuotasVencidas:      st.CuotasVencidas,
		MontoVencidas:       st.MontoVencidas,
		CuotasAdelantadas:   st.CuotasAdelantadas,
		MontoAdelantadas:    st.MontoAdelantadas,
		MontoProyectado:     st.MontoProyectado,
		MontoIngresado:      st.MontoIngresado,
		PorcentajePagadas:   st.PorcentajePagadas,
		PorcentajeIngresado: st.PorcentajeIngresado,
	}
}

func toProjectionDTO(report *contract.ProjectionReport) ProjectionDTO {
	dto := ProjectionDTO{
		From:            report.From.ISO(),
		To:              report.To.ISO(),
		Months:          make([]MonthProjectionDTO, 0, len(report.Months)),
		TotalProyectado: report.TotalProyectado,
	}
	for _, m := range report.Months {
		dto.Months = append(dto.Months, MonthProjectionDTO{
			Year:   m.Year,
			Month:  int(m.Month),
			Cuotas: m.Cuotas,
			Monto:  m.Monto,
		})
	}
	return dto
}
