package errors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/errors"
)

func TestOnlyRuntimeErrorsAreCatchable(t *testing.T) {
	require.True(t, errors.IsCatchableByOtherwise(&errors.RuntimeError{
		Diagnostic: errors.New(errors.RunDivisionByZero, "division by zero", errors.Span{}),
	}))
	require.False(t, errors.IsCatchableByOtherwise(&errors.ResourceExceededError{Message: "too deep"}))
	require.False(t, errors.IsCatchableByOtherwise(&errors.ApiError{Message: "bad arg count"}))
	require.False(t, errors.IsCatchableByOtherwise(&errors.CompilationError{}))
}

func TestDiagnosticBuilders(t *testing.T) {
	d := errors.New(errors.TypUnifyMismatch, "Int does not satisfy Ord", errors.Span{StartLine: 1, StartCol: 2}).
		WithHelp("did you mean Float?").
		WithRelated(errors.Span{StartLine: 1, StartCol: 1}, "inferred Int here")
	require.Equal(t, errors.SeverityError, d.Severity)
	require.Len(t, d.Help, 1)
	require.Len(t, d.Related, 1)
}
