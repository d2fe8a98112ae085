package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/engine"
)

func sampleContract(id, owner, registro string) *contract.Contract {
	c := &contract.Contract{
		ID:            id,
		Nombre1:       "Ana Torres",
		Dni1:          "40011223",
		Manzana:       "A",
		Lote:          "3",
		MontoTotal:    decimal.RequireFromString("6000"),
		FormaPago:     contract.PaymentInstallments,
		Inicial:       decimal.RequireFromString("1000"),
		NumeroCuotas:  5,
		FechaRegistro: engine.MustDate(registro),
		OwnerID:       owner,
	}
	c.Cuotas = engine.GenerateSchedule(c.Terms())
	return c
}

func TestIsolation(t *testing.T) {
	// Mutating a loaded aggregate must not reach the stored copy.
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, sampleContract("c-1", "u-1", "2025-01-15")))

	loaded, err := s.Get(ctx, "c-1")
	require.NoError(t, err)
	loaded.Nombre1 = "mutated"
	loaded.Cuotas[0].Estado = engine.StatusPaid

	again, err := s.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", again.Nombre1)
	assert.Equal(t, engine.StatusPending, again.Cuotas[0].Estado)
}

func TestListOrderAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, sampleContract("c-old", "u-1", "2024-05-01")))
	require.NoError(t, s.Replace(ctx, sampleContract("c-new", "u-1", "2025-06-12")))
	require.NoError(t, s.Replace(ctx, sampleContract("c-other", "u-2", "2025-02-02")))

	mine, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c-new", mine[0].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotFoundAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, contract.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), contract.ErrNotFound)

	require.NoError(t, s.Replace(ctx, sampleContract("c-1", "u-1", "2025-01-15")))
	require.NoError(t, s.Delete(ctx, "c-1"))
	_, err = s.Get(ctx, "c-1")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}
