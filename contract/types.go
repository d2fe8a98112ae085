/*
Package contract implements the client/contract domain on top of the
schedule engine.

PURPOSE:
  A Contract is the aggregate the whole system revolves around: the buyer
  (and optional co-owner), the parcel being sold, the payment terms, and
  the installment list the engine generates and re-balances. The package
  also defines the narrow Repository interface the core consumes and the
  Service that orchestrates read-transform-replace mutations.

OWNERSHIP:
  The installment list is exclusively owned by its parent contract. Every
  mutation loads the full aggregate, transforms the full list through the
  engine, and replaces the full aggregate in one write. There is no
  partial-field update path anywhere.

SEE ALSO:
  - service.go: mutation orchestration and per-contract write serialization
  - repository.go: persistence interface and its errors
  - stats.go: monthly stats and projection read models
*/
package contract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/solterra/cobranza/engine"
)

// =============================================================================
// PAYMENT FORM
// =============================================================================

type PaymentForm string

const (
	PaymentCash         PaymentForm = "contado"
	PaymentInstallments PaymentForm = "cuotas"
)

// =============================================================================
// CONTRACT AGGREGATE
// =============================================================================

// Contract is a real-estate installment-sale contract: client record,
// parcel, payment terms, and the generated installment schedule.
type Contract struct {
	ID string `json:"id"`

	// Buyer and optional co-owner.
	Nombre1  string `json:"nombre1"`
	Dni1     string `json:"dni1"`
	Celular1 string `json:"celular1,omitempty"`
	Email1   string `json:"email1,omitempty"`
	Nombre2  string `json:"nombre2,omitempty"`
	Dni2     string `json:"dni2,omitempty"`
	Celular2 string `json:"celular2,omitempty"`
	Email2   string `json:"email2,omitempty"`

	// Parcel.
	Manzana string  `json:"manzana"`
	Lote    string  `json:"lote"`
	Metraje float64 `json:"metraje"`

	// Terms.
	MontoTotal    decimal.Decimal     `json:"montoTotal"`
	FormaPago     PaymentForm         `json:"formaPago"`
	Inicial       decimal.Decimal     `json:"inicial"`
	NumeroCuotas  int                 `json:"numeroCuotas,omitempty"`
	FechaRegistro engine.CalendarDate `json:"fechaRegistro"`

	OwnerID string `json:"userId,omitempty"`

	Cuotas []engine.Installment `json:"cuotas"`
}

// Terms maps the aggregate onto the engine's generation input.
func (c *Contract) Terms() engine.ScheduleTerms {
	return engine.ScheduleTerms{
		MontoTotal:    c.MontoTotal,
		Inicial:       c.Inicial,
		NumeroCuotas:  c.NumeroCuotas,
		FechaRegistro: c.FechaRegistro,
	}
}

// Financed is the amount the regular installments must sum to.
func (c *Contract) Financed() decimal.Decimal {
	return c.MontoTotal.Sub(c.Inicial)
}

// IsInstallmentSale reports whether this contract carries a schedule.
func (c *Contract) IsInstallmentSale() bool {
	return c.FormaPago == PaymentInstallments
}

// Clone deep-copies the aggregate so service transforms never leak
// half-applied state into a caller's snapshot.
func (c *Contract) Clone() *Contract {
	out := *c
	out.Cuotas = engine.CloneSchedule(c.Cuotas)
	return &out
}

// Validate enforces the aggregate invariants that must hold before any
// schedule is generated.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.Nombre1) == "" || strings.TrimSpace(c.Dni1) == "" {
		return &ValidationError{Field: "nombre1/dni1", Reason: "buyer identity is required"}
	}
	if strings.TrimSpace(c.Manzana) == "" || strings.TrimSpace(c.Lote) == "" {
		return &ValidationError{Field: "manzana/lote", Reason: "parcel location is required"}
	}
	if !c.MontoTotal.IsPositive() {
		return &ValidationError{Field: "montoTotal", Reason: "contract price must be positive"}
	}
	if c.Inicial.IsNegative() || c.Inicial.GreaterThan(c.MontoTotal) {
		return &ValidationError{Field: "inicial", Reason: "down payment must be between 0 and montoTotal"}
	}
	switch c.FormaPago {
	case PaymentCash:
	case PaymentInstallments:
		if c.NumeroCuotas < 0 {
			return &ValidationError{Field: "numeroCuotas", Reason: "installment count cannot be negative"}
		}
	default:
		return &ValidationError{Field: "formaPago", Reason: "must be contado or cuotas"}
	}
	return nil
}

// MatchesParcel compares parcel identifiers case- and whitespace-
// insensitively. Duplicate detection must not depend on operator typing.
func (c *Contract) MatchesParcel(manzana, lote string) bool {
	return normalize(c.Manzana) == normalize(manzana) &&
		normalize(c.Lote) == normalize(lote)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
