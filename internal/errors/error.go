package errors

import "fmt"

// Error is melbi's top-level public error type (spec §6.2): one of
// ApiError, CompilationError, RuntimeError or ResourceExceededError.
// Consumers switch on the concrete type via a type switch;
// IsCatchableByOtherwise is the one predicate provided ("was this
// catchable by otherwise", true exactly for *RuntimeError).
type Error interface {
	error
	errorKind()
}

// ApiError reports misuse of the public interface: duplicate globals,
// wrong argument count/type at run. Never recoverable (spec §7.1).
type ApiError struct {
	Message string
}

func (e *ApiError) Error() string { return "api error: " + e.Message }
func (*ApiError) errorKind()      {}

// CompilationError wraps the full diagnostic list produced by parsing
// and type checking (spec §6.2, §7.2): the caller sees all collected
// diagnostics at once.
type CompilationError struct {
	Diagnostics []*Diagnostic
	Source      string
	Filename    string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation failed in %s: %d diagnostic(s)", e.Filename, len(e.Diagnostics))
}
func (*CompilationError) errorKind() {}

// RuntimeError is a single runtime fault: DivisionByZero,
// IntegerOverflow, IndexOutOfBounds, KeyNotFound, cast failure, or
// format-string failure. The only Error kind catchable by `otherwise`
// (spec §7.3).
type RuntimeError struct {
	Diagnostic *Diagnostic
	Source     string
	Filename   string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error in %s: %s", e.Filename, e.Diagnostic.Message)
}
func (*RuntimeError) errorKind() {}

// ResourceExceededError reports StackOverflow or IterationLimit.
// Never catchable by `otherwise`, always fatal to the current run
// (spec §7.4).
type ResourceExceededError struct {
	Message string
}

func (e *ResourceExceededError) Error() string { return "resource exceeded: " + e.Message }
func (*ResourceExceededError) errorKind()      {}

// IsCatchableByOtherwise reports whether err is a RuntimeError — the
// only kind the VM's otherwise-frame machinery may consume (spec §7).
func IsCatchableByOtherwise(err error) bool {
	_, ok := err.(*RuntimeError)
	return ok
}
