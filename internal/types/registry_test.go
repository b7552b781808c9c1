package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/types"
)

func TestPrimitivesAreStable(t *testing.T) {
	r := types.NewRegistry()
	require.Same(t, r.Int(), r.Int())
	require.Same(t, r.Float(), r.Float())
	require.NotSame(t, r.Int(), r.Float())
}

func TestStructuralInterning(t *testing.T) {
	r := types.NewRegistry()
	a1 := r.Array(r.Int())
	a2 := r.Array(r.Int())
	require.Same(t, a1, a2, "two independently constructed Array(Int) must intern to the same pointer")

	m1 := r.Map(r.Str(), r.Array(r.Bool()))
	m2 := r.Map(r.Str(), r.Array(r.Bool()))
	require.Same(t, m1, m2)
}

func TestRecordSortsAndRejectsDuplicates(t *testing.T) {
	r := types.NewRegistry()
	rec, err := r.Record([]types.Field{
		{Name: "b", Type: r.Int()},
		{Name: "a", Type: r.Str()},
	})
	require.NoError(t, err)
	require.Equal(t, "a", rec.Fields[0].Name)
	require.Equal(t, "b", rec.Fields[1].Name)

	_, err = r.Record([]types.Field{
		{Name: "a", Type: r.Int()},
		{Name: "a", Type: r.Str()},
	})
	require.Error(t, err)
}

func TestTypeClassInstances(t *testing.T) {
	r := types.NewRegistry()
	require.True(t, types.HasInstance(types.Numeric, r.Int()))
	require.True(t, types.HasInstance(types.Numeric, r.Float()))
	require.False(t, types.HasInstance(types.Numeric, r.Str()))

	require.True(t, types.HasInstance(types.Hashable, r.Array(r.Int())))
	require.False(t, types.HasInstance(types.Hashable, r.Array(r.Function(nil, r.Int()))))

	require.True(t, types.Containable(r.Str(), r.Array(r.Str())))
	require.False(t, types.Containable(r.Int(), r.Array(r.Str())))
}

func TestIsResolved(t *testing.T) {
	r := types.NewRegistry()
	require.True(t, r.Int().IsResolved())
	require.False(t, r.TypeVar(0).IsResolved())
	require.False(t, r.Array(r.TypeVar(1)).IsResolved())
}
