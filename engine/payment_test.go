package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/solterra/cobranza/engine"
)

func TestMarkPaid_SnapshotsComputedMora(t *testing.T) {
	// GIVEN: an installment 6 days overdue with no stored mora
	// WHEN: marking it paid
	// THEN: the fee is computed once against today and frozen, NOT flagged
	//       as a manual override
	cuotas := engine.GenerateSchedule(terms("3000", "0", 3, "2025-01-15"))
	today := cuotas[0].Vencimiento.AddDays(6)

	out, err := engine.MarkPaid(cuotas, 0, today, today)
	require.NoError(t, err)

	paid := out[0]
	assert.Equal(t, engine.StatusPaid, paid.Estado)
	require.True(t, paid.Mora.Frozen)
	assert.False(t, paid.Mora.Manual, "payment snapshot is not an operator override")
	assert.True(t, paid.Mora.Amount.Equal(money("10")), "1%% x 1000, got %s", paid.Mora.Amount)
	assert.True(t, paid.Total.Equal(money("1010")))
	require.NotNil(t, paid.FechaPago)
	assert.Equal(t, today.ISO(), paid.FechaPago.ISO())
}

func TestMarkPaid_FrozenFeeStaysFrozen(t *testing.T) {
	// A manual mora of 0 must survive payment even when the row is long
	// overdue: the stored value wins over the computed one.
	cuotas := engine.GenerateSchedule(terms("3000", "0", 3, "2025-01-15"))
	withOverride, err := engine.ApplyManualMora(cuotas, 0, decimal.Zero)
	require.NoError(t, err)

	today := cuotas[0].Vencimiento.AddDays(30)
	out, err := engine.MarkPaid(withOverride, 0, today, today)
	require.NoError(t, err)

	assert.True(t, out[0].Mora.Amount.IsZero(), "manual zero replaced with %s", out[0].Mora.Amount)
	assert.True(t, out[0].Mora.Manual)
	assert.True(t, out[0].Total.Equal(out[0].Monto))
}

func TestMarkPaid_DownPaymentNeverAccrues(t *testing.T) {
	// Regardless of how late it is recorded, numero 0 is paid with mora 0.
	cuotas := engine.GenerateSchedule(terms("10000", "2000", 4, "2024-01-10"))
	twoYearsLater := engine.MustDate("2026-01-10")

	out, err := engine.MarkPaid(cuotas, 0, twoYearsLater, twoYearsLater)
	require.NoError(t, err)

	down := out[0]
	assert.Equal(t, 0, down.Numero)
	require.True(t, down.Mora.Frozen)
	assert.True(t, down.Mora.Amount.IsZero())
	assert.True(t, down.Total.Equal(money("2000")))
}

func TestMarkPaid_FeeFrozenAtPaymentTime(t *testing.T) {
	// Once paid, the display fee no longer tracks today.
	cuotas := engine.GenerateSchedule(terms("3000", "0", 3, "2025-01-15"))
	payDay := cuotas[0].Vencimiento.AddDays(10) // fee = 5% x 1000 = 50

	out, err := engine.MarkPaid(cuotas, 0, payDay, payDay)
	require.NoError(t, err)

	muchLater := payDay.AddDays(100)
	assert.True(t, engine.DisplayMora(out[0], muchLater).Equal(money("50")),
		"paid row must display the frozen fee")
}

func TestMarkPaid_AlreadyPaidRejected(t *testing.T) {
	cuotas := engine.GenerateSchedule(terms("3000", "0", 3, "2025-01-15"))
	today := engine.MustDate("2025-02-28")

	out, err := engine.MarkPaid(cuotas, 1, today, today)
	require.NoError(t, err)

	_, err = engine.MarkPaid(out, 1, today.AddDays(1), today.AddDays(1))
	assert.ErrorIs(t, err, engine.ErrAlreadyPaid)
	var paidErr *engine.AlreadyPaidError
	require.ErrorAs(t, err, &paidErr)
	assert.Equal(t, 2, paidErr.Numero)
	assert.Equal(t, today.ISO(), paidErr.FechaPago)
}

func TestMarkPaid_RejectsBadInput(t *testing.T) {
	cuotas := engine.GenerateSchedule(terms("3000", "0", 3, "2025-01-15"))
	today := engine.MustDate("2025-02-01")

	_, err := engine.MarkPaid(cuotas, 5, today, today)
	assert.ErrorIs(t, err, engine.ErrIndexOutOfRange)

	var zero engine.CalendarDate
	_, err = engine.MarkPaid(cuotas, 0, zero, today)
	assert.ErrorIs(t, err, engine.ErrInvalidDate)
}
