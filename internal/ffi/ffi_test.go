package ffi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/ffi"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

func TestToJSONScalars(t *testing.T) {
	reg := types.NewRegistry()
	s, err := ffi.ToJSON(value.Int(reg, 42))
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = ffi.ToJSON(value.Str(reg, "hi\nthere"))
	require.NoError(t, err)
	assert.Equal(t, `"hi\nthere"`, s)
}

func TestToJSONArrayAndRecord(t *testing.T) {
	reg := types.NewRegistry()
	arr, err := value.Array(reg, reg.Int(), []value.Value{value.Int(reg, 1), value.Int(reg, 2)})
	require.NoError(t, err)
	s, err := ffi.ToJSON(arr)
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2]", s)

	recType, err := reg.Record([]types.Field{{Name: "x", Type: reg.Int()}, {Name: "y", Type: reg.Str()}})
	require.NoError(t, err)
	rec, err := value.Record(recType, map[string]value.Value{"x": value.Int(reg, 1), "y": value.Str(reg, "a")})
	require.NoError(t, err)
	s, err = ffi.ToJSON(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":"a"}`, s)
}

func TestFromJSONRecord(t *testing.T) {
	reg := types.NewRegistry()
	recType, err := reg.Record([]types.Field{{Name: "x", Type: reg.Int()}, {Name: "y", Type: reg.Str()}})
	require.NoError(t, err)

	v, err := ffi.FromJSON(reg, recType, `{"x": 7, "y": "hello"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Field(0).AsInt())
	assert.Equal(t, "hello", v.Field(1).AsStr())
}

func TestFromJSONOption(t *testing.T) {
	reg := types.NewRegistry()
	optType := reg.Option(reg.Int())

	v, err := ffi.FromJSON(reg, optType, "null")
	require.NoError(t, err)
	assert.True(t, v.IsNone())

	v, err = ffi.FromJSON(reg, optType, "5")
	require.NoError(t, err)
	assert.False(t, v.IsNone())
	assert.Equal(t, int64(5), v.Unwrap().AsInt())
}

func TestFuncBuildsCallableValue(t *testing.T) {
	reg := types.NewRegistry()
	fnType, fn := ffi.Func(reg, ffi.Spec{
		Name:       "double",
		ParamTypes: []*types.Type{reg.Int()},
		ReturnType: reg.Int(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Int(ctx.Types, args[0].AsInt()*2), nil
		},
	})
	assert.True(t, fnType.Equals(reg.Function([]*types.Type{reg.Int()}, reg.Int())))

	ctx := value.NewFfiContext(reg, value.NewArena())
	result, err := fn.AsFunc().Native(ctx, []value.Value{value.Int(reg, 21)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}
