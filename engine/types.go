/*
Package engine implements the installment schedule and late-fee core.

PURPOSE:
  This package contains the pure calculation rules for installment-sale
  contracts: schedule generation from contract terms, late-fee ("mora")
  accrual, payment recording, and the redistribution algorithms that
  re-balance amounts and due dates after manual edits while keeping the
  contract's financed total exactly conserved.

KEY CONCEPTS IN THIS FILE (types.go):
  - Installment: one row of the payment schedule ("cuota")
  - Mora: tagged late-fee value (auto-computed vs. frozen)
  - Status: stored lifecycle state (pending/paid)

DESIGN PRINCIPLES:
  1. Purity: every operation takes a schedule and returns a new one;
     callers persist the whole list in a single atomic replace
  2. Precision: decimal.Decimal everywhere, conservation to the cent
  3. No clock access: "today" is always an explicit argument

SEE ALSO:
  - schedule.go: schedule generation
  - mora.go: late-fee accrual
  - redistribute.go: amount/date re-balancing
  - payment.go: payment recording
*/
package engine

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Stored lifecycle state
// =============================================================================

// Status is the authoritative state stored on an installment.
// "overdue" is intentionally NOT a member: it is a view-time derivation
// (see status.go), never written back.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// =============================================================================
// MORA - Tagged late-fee value
// =============================================================================

// Mora is the late fee attached to an installment.
//
// The zero value means "auto": the fee is derived at read time from the
// due date and the current date. A frozen Mora carries a fixed amount that
// must never be recomputed:
//   - Manual=true:  explicit operator override (wire field manualMora)
//   - Manual=false: automatic snapshot taken at payment time
type Mora struct {
	Frozen bool
	Amount decimal.Decimal
	Manual bool
}

// AutoMora derives the fee dynamically at read time.
func AutoMora() Mora { return Mora{} }

// FrozenMora fixes the fee at v, as a payment-time snapshot.
func FrozenMora(v decimal.Decimal) Mora { return Mora{Frozen: true, Amount: v} }

// ManualMora fixes the fee at v by explicit operator action.
// A manual value, including an explicit zero, is sticky: display and
// payment paths must never replace it with a computed one.
func ManualMora(v decimal.Decimal) Mora { return Mora{Frozen: true, Amount: v, Manual: true} }

// Stored returns the amount that participates in cached totals: the frozen
// amount, or zero for auto mora (which has no stored component).
func (m Mora) Stored() decimal.Decimal {
	if m.Frozen {
		return m.Amount
	}
	return decimal.Zero
}

// =============================================================================
// INSTALLMENT - One schedule row
// =============================================================================

// Installment is a single payment row. Numero 0 is the down payment
// ("inicial"), due on the contract date and never subject to late fees;
// 1..N are the regular monthly installments. Rows are created once by the
// generator and thereafter only mutated, never reordered or renumbered.
type Installment struct {
	Numero      int
	Vencimiento CalendarDate
	Monto       decimal.Decimal
	Mora        Mora
	Total       decimal.Decimal
	FechaPago   *CalendarDate
	Estado      Status

	// Attachment URLs, opaque to the engine.
	Voucher []string
	Boleta  []string
}

// IsDownPayment reports whether this is the numero-0 row.
func (i Installment) IsDownPayment() bool { return i.Numero == 0 }

// RecomputeTotal refreshes the cached total = monto + stored mora.
func (i *Installment) RecomputeTotal() {
	i.Total = i.Monto.Add(i.Mora.Stored())
}

// =============================================================================
// WIRE FORMAT
// =============================================================================
// The persisted aggregate shape keeps the historical field names: mora is an
// optional decimal ("absent" = auto), manualMora marks operator overrides.

type installmentJSON struct {
	Numero      int              `json:"numero"`
	Vencimiento CalendarDate     `json:"vencimiento"`
	Monto       decimal.Decimal  `json:"monto"`
	Mora        *decimal.Decimal `json:"mora,omitempty"`
	ManualMora  bool             `json:"manualMora,omitempty"`
	Total       decimal.Decimal  `json:"total"`
	FechaPago   *CalendarDate    `json:"fechaPago,omitempty"`
	Estado      Status           `json:"estado"`
	Voucher     []string         `json:"voucher,omitempty"`
	Boleta      []string         `json:"boleta,omitempty"`
}

func (i Installment) MarshalJSON() ([]byte, error) {
	w := installmentJSON{
		Numero:      i.Numero,
		Vencimiento: i.Vencimiento,
		Monto:       i.Monto,
		ManualMora:  i.Mora.Manual,
		Total:       i.Total,
		FechaPago:   i.FechaPago,
		Estado:      i.Estado,
		Voucher:     i.Voucher,
		Boleta:      i.Boleta,
	}
	if i.Mora.Frozen {
		amount := i.Mora.Amount
		w.Mora = &amount
	}
	return json.Marshal(w)
}

func (i *Installment) UnmarshalJSON(data []byte) error {
	var w installmentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Installment{
		Numero:      w.Numero,
		Vencimiento: w.Vencimiento,
		Monto:       w.Monto,
		Total:       w.Total,
		FechaPago:   w.FechaPago,
		Estado:      w.Estado,
		Voucher:     w.Voucher,
		Boleta:      w.Boleta,
	}
	if w.Mora != nil {
		i.Mora = Mora{Frozen: true, Amount: *w.Mora, Manual: w.ManualMora}
	}
	if i.Estado == "" {
		i.Estado = StatusPending
	}
	return nil
}

// =============================================================================
// SCHEDULE HELPERS
// =============================================================================

// CloneSchedule deep-copies a schedule so transforms never alias their input.
func CloneSchedule(cuotas []Installment) []Installment {
	out := make([]Installment, len(cuotas))
	copy(out, cuotas)
	for idx := range out {
		if cuotas[idx].FechaPago != nil {
			fp := *cuotas[idx].FechaPago
			out[idx].FechaPago = &fp
		}
		out[idx].Voucher = append([]string(nil), cuotas[idx].Voucher...)
		out[idx].Boleta = append([]string(nil), cuotas[idx].Boleta...)
	}
	return out
}

// RegularCount returns the number of regular installments (numero > 0).
func RegularCount(cuotas []Installment) int {
	n := 0
	for _, c := range cuotas {
		if c.Numero > 0 {
			n++
		}
	}
	return n
}

// lastRegularIndex locates the balancing row: the installment whose numero
// equals the regular count. Falls back to the final slice position when the
// schedule is irregular.
func lastRegularIndex(cuotas []Installment) int {
	n := RegularCount(cuotas)
	for idx, c := range cuotas {
		if c.Numero == n && n > 0 {
			return idx
		}
	}
	return len(cuotas) - 1
}

// RegularSum adds up the monto of every regular installment. For a
// well-formed installment contract this equals montoTotal - inicial
// to the cent.
func RegularSum(cuotas []Installment) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range cuotas {
		if c.Numero > 0 {
			sum = sum.Add(c.Monto)
		}
	}
	return sum
}
