package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/engine"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/value"
)

func TestCompileAndRunSimpleExpression(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("x + y", []engine.Param{
		{Name: "x", Type: e.Types().Int()},
		{Name: "y", Type: e.Types().Int()},
	})
	require.NoError(t, err)

	result, err := ce.Run([]value.Value{value.Int(e.Types(), 10), value.Int(e.Types(), 32)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}

func TestRunArgumentCountMismatch(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("x + y", []engine.Param{
		{Name: "x", Type: e.Types().Int()},
		{Name: "y", Type: e.Types().Int()},
	})
	require.NoError(t, err)

	_, err = ce.Run([]value.Value{value.Float(e.Types(), 3.14)})
	require.Error(t, err)
	apiErr, ok := err.(*errors.ApiError)
	require.True(t, ok)
	assert.Equal(t, "Argument count mismatch", apiErr.Message)
}

func TestRunArgumentTypeMismatch(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("x + y", []engine.Param{
		{Name: "x", Type: e.Types().Int()},
		{Name: "y", Type: e.Types().Int()},
	})
	require.NoError(t, err)

	_, err = ce.Run([]value.Value{value.Float(e.Types(), 3.14), value.Float(e.Types(), 0)})
	require.Error(t, err)
	apiErr, ok := err.(*errors.ApiError)
	require.True(t, ok)
	assert.Equal(t, "Type mismatch for parameter 0", apiErr.Message)
}

func TestCompileDiagnosticsOnParseError(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	_, err = e.Compile("1 +", nil)
	require.Error(t, err)
	_, ok := err.(*errors.CompilationError)
	assert.True(t, ok)
}

func TestCompileDiagnosticsOnTypeError(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	_, err = e.Compile(`1 + "a"`, nil)
	require.Error(t, err)
	_, ok := err.(*errors.CompilationError)
	assert.True(t, ok)
}

func TestEngineWideBindingVisibleToCompile(t *testing.T) {
	// The binding's Type and Value come from a separate seed Engine's
	// registry; engine.New builds its own registry, and types compare
	// structurally, so the binding still checks and runs.
	reg0, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)
	intType := reg0.Types().Int()

	e, err := engine.New(engine.DefaultEngineOptions, []engine.Binding{
		{Name: "answer", Type: intType, Value: value.Int(reg0.Types(), 42)},
	})
	require.NoError(t, err)

	ce, err := e.Compile("answer", nil)
	require.NoError(t, err)

	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}

func TestNewRejectsDuplicateGlobalNames(t *testing.T) {
	reg0, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)
	intType := reg0.Types().Int()

	_, err = engine.New(engine.DefaultEngineOptions, []engine.Binding{
		{Name: "x", Type: intType, Value: value.Int(reg0.Types(), 1)},
		{Name: "x", Type: intType, Value: value.Int(reg0.Types(), 2)},
	})
	require.Error(t, err)
	_, ok := err.(*errors.ApiError)
	assert.True(t, ok)
}

func TestClosureCaptureSurvivesCallSite(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("f(32) where { c = 10, f = (x) => c + x }", nil)
	require.NoError(t, err)

	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}

func TestRunModeVMOnly(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("1 + 2 * 3", nil)
	require.NoError(t, err)

	result, err := ce.Run(nil, engine.RunOptions{MaxDepth: 1000, Mode: engine.ModeVM})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.AsInt())
}

func TestRunModeTreeOnly(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("1 + 2 * 3", nil)
	require.NoError(t, err)

	result, err := ce.Run(nil, engine.RunOptions{MaxDepth: 1000, Mode: engine.ModeTree})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.AsInt())
}

func TestRunBothModeAgrees(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("(x * x) where { x = 6 }", nil)
	require.NoError(t, err)

	result, err := ce.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(36), result.AsInt())
}

func TestReturnTypeAndParams(t *testing.T) {
	e, err := engine.New(engine.DefaultEngineOptions, nil)
	require.NoError(t, err)

	ce, err := e.Compile("x + 1", []engine.Param{{Name: "x", Type: e.Types().Int()}})
	require.NoError(t, err)

	assert.True(t, ce.ReturnType().Equals(e.Types().Int()))
	require.Len(t, ce.Params(), 1)
	assert.Equal(t, "x", ce.Params()[0].Name)
}
