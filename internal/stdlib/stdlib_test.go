package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/engine"
	"github.com/melbi-lang/melbi/internal/stdlib"
)

func newEngineWithStdlib(t *testing.T) *engine.Engine {
	t.Helper()
	e0, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)
	reg := e0.Types()

	var bindings []engine.Binding
	bindings = append(bindings, stdlib.Math(reg)...)
	bindings = append(bindings, stdlib.String(reg)...)

	e, err := engine.New(engine.DefaultEngineOptions, bindings)
	require.NoError(t, err)
	return e
}

func TestMathFunctions(t *testing.T) {
	e := newEngineWithStdlib(t)

	ce, err := e.Compile("Sqrt(16.0)", nil)
	require.NoError(t, err)
	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, result.AsFloat(), 1e-9)

	ce, err = e.Compile("Clamp(42.0, 0.0, 10.0)", nil)
	require.NoError(t, err)
	result, err = ce.Run(nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, result.AsFloat(), 1e-9)
}

func TestMathConstants(t *testing.T) {
	e := newEngineWithStdlib(t)
	ce, err := e.Compile("PI", nil)
	require.NoError(t, err)
	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.14159265, result.AsFloat(), 1e-6)
}

func TestStringFunctions(t *testing.T) {
	e := newEngineWithStdlib(t)

	ce, err := e.Compile(`Upper("hello")`, nil)
	require.NoError(t, err)
	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", result.AsStr())

	ce, err = e.Compile(`Len("hello")`, nil)
	require.NoError(t, err)
	result, err = ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.AsInt())

	ce, err = e.Compile(`Substring("hello world", 6, 11)`, nil)
	require.NoError(t, err)
	result, err = ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, "world", result.AsStr())
}

func TestStringToIntOption(t *testing.T) {
	e := newEngineWithStdlib(t)

	ce, err := e.Compile(`ToInt("42") match { some(n) => n, none => -1 }`, nil)
	require.NoError(t, err)
	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())

	ce, err = e.Compile(`ToInt("nope") match { some(n) => n, none => -1 }`, nil)
	require.NoError(t, err)
	result, err = ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), result.AsInt())
}

func TestSplitJoinRoundTrip(t *testing.T) {
	e := newEngineWithStdlib(t)

	ce, err := e.Compile(`Join(Split("a,b,c", ","), "-")`, nil)
	require.NoError(t, err)
	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", result.AsStr())
}
