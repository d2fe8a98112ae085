package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewWithClient(rdb)
}

func sampleContract(id, owner, registro string) *contract.Contract {
	c := &contract.Contract{
		ID:            id,
		Nombre1:       "Maria Quispe",
		Dni1:          "45678912",
		Manzana:       "B",
		Lote:          "14",
		Metraje:       120,
		MontoTotal:    decimal.RequireFromString("12000"),
		FormaPago:     contract.PaymentInstallments,
		Inicial:       decimal.RequireFromString("2000"),
		NumeroCuotas:  10,
		FechaRegistro: engine.MustDate(registro),
		OwnerID:       owner,
	}
	c.Cuotas = engine.GenerateSchedule(c.Terms())
	return c
}

func TestRoundTrip(t *testing.T) {
	// GIVEN a stored contract with a generated schedule
	s := newTestStore(t)
	ctx := context.Background()
	in := sampleContract("c-1", "u-1", "2025-01-15")
	require.NoError(t, s.Replace(ctx, in))

	// WHEN it is loaded back
	out, err := s.Get(ctx, "c-1")
	require.NoError(t, err)

	// THEN every field survives, including decimals and dates
	assert.Equal(t, in.Nombre1, out.Nombre1)
	assert.True(t, in.MontoTotal.Equal(out.MontoTotal))
	assert.True(t, in.FechaRegistro.Equal(out.FechaRegistro))
	require.Len(t, out.Cuotas, len(in.Cuotas))
	for i := range in.Cuotas {
		assert.True(t, in.Cuotas[i].Monto.Equal(out.Cuotas[i].Monto), "cuota %d", i)
		assert.True(t, in.Cuotas[i].Vencimiento.Equal(out.Cuotas[i].Vencimiento), "cuota %d", i)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestReplaceIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := sampleContract("c-1", "u-1", "2025-01-15")
	require.NoError(t, s.Replace(ctx, c))

	c.Celular1 = "987654321"
	require.NoError(t, s.Replace(ctx, c))

	out, err := s.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "987654321", out.Celular1)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListOrderAndOwnerFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, sampleContract("c-old", "u-1", "2024-06-10")))
	require.NoError(t, s.Replace(ctx, sampleContract("c-new", "u-1", "2025-02-20")))
	require.NoError(t, s.Replace(ctx, sampleContract("c-other", "u-2", "2025-01-01")))

	// Newest registration first within an owner.
	mine, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c-new", mine[0].ID)
	assert.Equal(t, "c-old", mine[1].ID)

	// Empty owner lists everything.
	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, sampleContract("c-1", "u-1", "2025-01-15")))

	require.NoError(t, s.Delete(ctx, "c-1"))

	_, err := s.Get(ctx, "c-1")
	assert.ErrorIs(t, err, contract.ErrNotFound)
	mine, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, mine)

	// Deleting again reports not found.
	assert.ErrorIs(t, s.Delete(ctx, "c-1"), contract.ErrNotFound)
}
