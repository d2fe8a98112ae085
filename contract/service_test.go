package contract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/engine"
	"github.com/solterra/cobranza/store/memory"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T, today string) (*contract.Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	svc := contract.NewService(repo, zerolog.Nop())
	svc.Clock = func() engine.CalendarDate { return engine.MustDate(today) }
	return svc, repo
}

func createInput(manzana, lote string) contract.CreateInput {
	return contract.CreateInput{
		Nombre1:       "Rosa Mamani",
		Dni1:          "42567890",
		Manzana:       manzana,
		Lote:          lote,
		Metraje:       140,
		MontoTotal:    money("9000"),
		FormaPago:     contract.PaymentInstallments,
		Inicial:       money("2000"),
		NumeroCuotas:  7,
		FechaRegistro: engine.MustDate("2024-12-10"),
		OwnerID:       "u-1",
	}
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreateGeneratesSchedule(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")

	c, err := svc.Create(context.Background(), createInput("B", "12"))
	require.NoError(t, err)

	// Down-payment row plus seven regulars, regulars summing to 7000.
	require.Len(t, c.Cuotas, 8)
	assert.Equal(t, 0, c.Cuotas[0].Numero)
	assert.Equal(t, engine.StatusPending, c.Cuotas[0].Estado)
	assert.True(t, engine.RegularSum(c.Cuotas).Equal(money("7000")))
	// First regular is due at the end of the month after registration.
	assert.Equal(t, "2025-01-31", c.Cuotas[1].Vencimiento.ISO())
}

func TestCreateDefaultsRegistrationToToday(t *testing.T) {
	svc, _ := newTestService(t, "2025-03-05")
	in := createInput("B", "12")
	in.FechaRegistro = engine.CalendarDate{}

	c, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05", c.FechaRegistro.ISO())
}

func TestCreateRejectsDuplicateParcel(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	_, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	// Same parcel with different casing and whitespace is still a duplicate.
	dup := createInput(" b ", "12")
	dup.Dni1 = "99999999"
	_, err = svc.Create(ctx, dup)
	assert.ErrorIs(t, err, contract.ErrDuplicateParcel)

	// A different lote is fine.
	_, err = svc.Create(ctx, createInput("B", "13"))
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	in := createInput("B", "12")
	in.MontoTotal = money("0")

	_, err := svc.Create(context.Background(), in)
	var verr *contract.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "montoTotal", verr.Field)
}

func TestCreateCashContractHasNoSchedule(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	in := createInput("B", "12")
	in.FormaPago = contract.PaymentCash
	in.NumeroCuotas = 0
	in.Inicial = money("0")

	c, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, c.Cuotas)
}

func TestGenerateScheduleOnlyOnce(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	_, err = svc.GenerateSchedule(ctx, c.ID)
	assert.ErrorIs(t, err, contract.ErrScheduleExists)
}

// =============================================================================
// MUTATION CYCLE
// =============================================================================

// flakyRepo wraps a working repository but fails every Replace after the
// aggregate exists, to prove failed writes leave stored state untouched.
type flakyRepo struct {
	*memory.Store
	failWrites bool
}

func (r *flakyRepo) Replace(ctx context.Context, c *contract.Contract) error {
	if r.failWrites {
		return errors.New("disk full")
	}
	return r.Store.Replace(ctx, c)
}

func TestFailedReplaceDiscardsTransform(t *testing.T) {
	repo := &flakyRepo{Store: memory.New()}
	svc := contract.NewService(repo, zerolog.Nop())
	svc.Clock = func() engine.CalendarDate { return engine.MustDate("2024-12-10") }
	ctx := context.Background()

	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)
	before, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)

	repo.failWrites = true
	_, err = svc.SetInstallmentAmount(ctx, c.ID, 1, money("500"))
	require.Error(t, err)

	repo.failWrites = false
	after, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, before.Cuotas[1].Monto.Equal(after.Cuotas[1].Monto))
	last := len(after.Cuotas) - 1
	assert.True(t, before.Cuotas[last].Monto.Equal(after.Cuotas[last].Monto))
}

func TestMutateUnknownContract(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	_, err := svc.SetInstallmentAmount(context.Background(), "ghost", 1, money("500"))
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

// =============================================================================
// SCHEDULE MUTATIONS THROUGH THE SERVICE
// =============================================================================

func TestSetInstallmentAmountRebalances(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	// 7000 over 7: six rows of 1000, last absorbs rounding (here none).
	updated, err := svc.SetInstallmentAmount(ctx, c.ID, 1, money("800"))
	require.NoError(t, err)
	assert.True(t, updated.Cuotas[1].Monto.Equal(money("800")))
	assert.True(t, engine.RegularSum(updated.Cuotas).Equal(money("7000")))
}

func TestSetUniformAmount(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	updated, err := svc.SetUniformAmount(ctx, c.ID, money("950"))
	require.NoError(t, err)
	for _, cuota := range updated.Cuotas[1:7] {
		assert.True(t, cuota.Monto.Equal(money("950")), "cuota %d", cuota.Numero)
	}
	assert.True(t, engine.RegularSum(updated.Cuotas).Equal(money("7000")))
}

func TestSetInstallmentDateCascade(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	// Anchor cuota 2 mid-March; later rows follow at month ends.
	updated, err := svc.SetInstallmentDate(ctx, c.ID, 2, engine.MustDate("2025-03-15"), true)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", updated.Cuotas[1].Vencimiento.ISO())
	assert.Equal(t, "2025-03-15", updated.Cuotas[2].Vencimiento.ISO())
	assert.Equal(t, "2025-04-30", updated.Cuotas[3].Vencimiento.ISO())
	assert.Equal(t, "2025-05-31", updated.Cuotas[4].Vencimiento.ISO())
}

func TestMarkPaidUsesClock(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	// 10 days past the 2025-01-31 due date: 5 accruing days at 1%.
	svc.Clock = func() engine.CalendarDate { return engine.MustDate("2025-02-10") }
	updated, err := svc.MarkPaid(ctx, c.ID, 1, engine.MustDate("2025-02-10"))
	require.NoError(t, err)

	paid := updated.Cuotas[1]
	assert.Equal(t, engine.StatusPaid, paid.Estado)
	require.True(t, paid.Mora.Frozen)
	assert.True(t, paid.Mora.Amount.Equal(money("50")))

	// Paying the same row again is rejected.
	_, err = svc.MarkPaid(ctx, c.ID, 1, engine.MustDate("2025-02-11"))
	var aerr *engine.AlreadyPaidError
	assert.ErrorAs(t, err, &aerr)
}

func TestSetManualMora(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	updated, err := svc.SetManualMora(ctx, c.ID, 1, money("25"))
	require.NoError(t, err)
	m := updated.Cuotas[1].Mora
	assert.True(t, m.Frozen)
	assert.True(t, m.Manual)
	assert.True(t, m.Amount.Equal(money("25")))
}

// =============================================================================
// SEARCH AND DETAILS
// =============================================================================

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	_, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)
	other := createInput("C", "4")
	other.Nombre1 = "Pedro Huanca"
	other.Dni1 = "76543210"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	byParcel, err := svc.Search(ctx, "u-1", "b", "", "")
	require.NoError(t, err)
	require.Len(t, byParcel, 1)
	assert.Equal(t, "B", byParcel[0].Manzana)

	byDni, err := svc.Search(ctx, "u-1", "", "", "7654")
	require.NoError(t, err)
	require.Len(t, byDni, 1)
	assert.Equal(t, "Pedro Huanca", byDni[0].Nombre1)

	byName, err := svc.Search(ctx, "u-1", "", "", "pedro")
	require.NoError(t, err)
	assert.Len(t, byName, 1)
}

func TestUpdateDetailsLeavesScheduleAlone(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	updated, err := svc.UpdateDetails(ctx, c.ID, contract.UpdateInput{
		Nombre1: "Rosa Mamani de Flores",
		Dni1:    "42567890",
		Manzana: "B",
		Lote:    "12",
		Metraje: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rosa Mamani de Flores", updated.Nombre1)
	require.Len(t, updated.Cuotas, len(c.Cuotas))
	assert.True(t, engine.RegularSum(updated.Cuotas).Equal(money("7000")))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, "2024-12-10")
	ctx := context.Background()
	c, err := svc.Create(ctx, createInput("B", "12"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, contract.ErrNotFound)
}
