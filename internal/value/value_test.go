package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

func TestFloatEqualityAndHashing(t *testing.T) {
	r := types.NewRegistry()
	posZero := value.Float(r, 0.0)
	negZero := value.Float(r, math.Copysign(0, -1))
	require.True(t, value.Equal(posZero, negZero), "+0.0 == -0.0")
	require.Equal(t, value.Hash(posZero), value.Hash(negZero))

	nan1 := value.Float(r, math.NaN())
	nan2 := value.Float(r, math.NaN())
	require.False(t, value.Equal(nan1, nan2), "NaN != NaN under IEEE equality")
	require.Equal(t, value.Hash(nan1), value.Hash(nan2), "all NaNs hash equally")

	require.Equal(t, 0, value.Compare(posZero, negZero), "total order collapses ±0.0")
	require.Equal(t, -1, value.Compare(posZero, nan1), "NaN sorts last")
}

func TestMapConstructionSortsAndDedupes(t *testing.T) {
	r := types.NewRegistry()
	pairs := []struct {
		Key value.Value
		Val value.Value
	}{
		{Key: value.Int(r, 2), Val: value.Str(r, "first-2")},
		{Key: value.Int(r, 1), Val: value.Str(r, "one")},
		{Key: value.Int(r, 2), Val: value.Str(r, "second-2")},
	}
	m, err := value.Map(r, r.Int(), r.Str(), pairs)
	require.NoError(t, err)
	require.Equal(t, 2, m.MapLen())
	k0, v0 := m.MapEntryAt(0)
	require.Equal(t, int64(1), k0.AsInt())
	require.Equal(t, "one", v0.AsStr())
	k1, v1 := m.MapEntryAt(1)
	require.Equal(t, int64(2), k1.AsInt())
	require.Equal(t, "second-2", v1.AsStr(), "last write wins on duplicate keys")

	got, ok := m.MapGet(value.Int(r, 2))
	require.True(t, ok)
	require.Equal(t, "second-2", got.AsStr())

	_, ok = m.MapGet(value.Int(r, 99))
	require.False(t, ok)
}

func TestArrayAndRecordConstruction(t *testing.T) {
	r := types.NewRegistry()
	arr, err := value.Array(r, r.Int(), []value.Value{value.Int(r, 1), value.Int(r, 2), value.Int(r, 3)})
	require.NoError(t, err)
	require.Equal(t, 3, arr.ArrayLen())
	require.Equal(t, int64(2), arr.ArrayAt(1).AsInt())

	_, err = value.Array(r, r.Int(), []value.Value{value.Str(r, "nope")})
	require.Error(t, err)

	recType, err := r.Record([]types.Field{
		{Name: "x", Type: r.Int()},
		{Name: "y", Type: r.Int()},
	})
	require.NoError(t, err)
	rec, err := value.Record(recType, map[string]value.Value{
		"x": value.Int(r, 10),
		"y": value.Int(r, 32),
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), rec.Field(0).AsInt())
	require.Equal(t, int64(32), rec.Field(1).AsInt())
}

func TestOptionConstruction(t *testing.T) {
	r := types.NewRegistry()
	none := value.None(r, r.Int())
	require.True(t, none.IsNone())

	some, err := value.Some(r, r.Int(), value.Int(r, 42))
	require.NoError(t, err)
	require.False(t, some.IsNone())
	require.Equal(t, int64(42), some.Unwrap().AsInt())
}

func TestFunctionEqualityIsReference(t *testing.T) {
	r := types.NewRegistry()
	fnType := r.Function([]*types.Type{r.Int()}, r.Int())
	obj := &value.FuncObj{Name: "id"}
	f1 := value.Function(r, fnType, obj)
	f2 := value.Function(r, fnType, obj)
	f3 := value.Function(r, fnType, &value.FuncObj{Name: "id"})
	require.True(t, value.Equal(f1, f2))
	require.False(t, value.Equal(f1, f3))
}

func TestTypedTierRoundTrip(t *testing.T) {
	r := types.NewRegistry()
	typed := value.NewTyped[int64](42)
	dyn := value.ToDynamic(r, typed)
	require.Equal(t, int64(42), dyn.AsInt())

	back, err := value.ExpectTyped[int64](r, dyn)
	require.NoError(t, err)
	require.Equal(t, int64(42), back.Get())

	_, err = value.ExpectTyped[string](r, dyn)
	require.Error(t, err)
}
