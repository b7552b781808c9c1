// Package engine is melbi's public embedding surface (spec §6.1): an
// Engine owns a type registry and a fixed set of engine-wide globals,
// Engine.Compile turns source text into a CompiledExpression bound to
// a declared parameter list, and CompiledExpression.Run/RunUnchecked
// execute it against a value arena.
//
// Grounded on the teacher's internal/pipeline package: Engine mirrors
// pipeline.Config's "collect the sub-environments once, default the
// ones not supplied" shape, and CompiledExpression.Run's phase
// separation (validate, then execute) mirrors pipeline.Run's own
// parse/typecheck/lower/evaluate staging, even though melbi's engine
// has exactly two phases (compile, run) rather than the teacher's
// pipeline's many.
package engine

import (
	"fmt"

	"github.com/melbi-lang/melbi/internal/analyzer"
	"github.com/melbi-lang/melbi/internal/compiler"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/parser"
	"github.com/melbi-lang/melbi/internal/treeeval"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
	"github.com/melbi-lang/melbi/internal/vm"
)

// Binding is one engine-wide name: visible to every expression the
// Engine compiles, bound once at Engine construction (spec §6.1
// "init_env").
type Binding struct {
	Name  string
	Type  *types.Type
	Value value.Value
}

// Param is one compiled expression's declared runtime parameter
// (spec §6.1 Engine::compile's "params" argument).
type Param struct {
	Name string
	Type *types.Type
}

// Mode selects which backend(s) CompiledExpression.Run dispatches to.
// VM and Tree alone exist for benchmarking and for isolating a
// cross-backend disagreement once Both has found one; Both is the
// mode spec §8's cross-runtime-equivalence property actually exercises
// and is this package's default.
type Mode int

const (
	ModeBoth Mode = iota
	ModeVM
	ModeTree
)

// CompileOptions affects Engine.Compile. Presently empty; it exists so
// call sites and the RunOptions pattern stay symmetric, and so a
// future compile-time knob (e.g. a diagnostic budget override) has
// somewhere to live without breaking the Compile signature.
type CompileOptions struct{}

// RunOptions bounds one Run/RunUnchecked call (spec §6.1). MaxDepth
// and MaxIterations feed both backends' Limits directly; a zero
// MaxIterations means unlimited, matching vm.Limits/treeeval.Limits.
type RunOptions struct {
	MaxDepth      int
	MaxIterations uint64
	Mode          Mode
}

// DefaultRunOptions matches spec §6.1's documented RunOptions defaults
// (max_depth 1000, unbounded iterations).
var DefaultRunOptions = RunOptions{MaxDepth: 1000, MaxIterations: 0, Mode: ModeBoth}

// EngineOptions bundles the defaults merged into every Compile/Run
// call that doesn't override them (spec §6.1 EngineOptions).
type EngineOptions struct {
	DefaultCompileOptions CompileOptions
	DefaultRunOptions     RunOptions
}

// DefaultEngineOptions is the zero-configuration Engine.New default.
var DefaultEngineOptions = EngineOptions{DefaultRunOptions: DefaultRunOptions}

// Engine owns the type registry and the engine-wide bindings shared by
// every expression it compiles. One Engine is meant to be built once
// and reused across many Compile calls (spec §6.1).
type Engine struct {
	reg      *types.Registry
	bindings []Binding
	globals  []analyzer.Global
	opts     EngineOptions
}

// New constructs an Engine over a fresh type registry (spec §6.1
// Engine::new). initEnv's names must be pairwise distinct; a duplicate
// is an Api error, not a panic, since it is a caller mistake reachable
// at normal runtime rather than an internal invariant violation.
func New(opts EngineOptions, initEnv []Binding) (*Engine, error) {
	globals := make([]analyzer.Global, len(initEnv))
	for i, b := range initEnv {
		globals[i] = analyzer.Global{Name: b.Name, Type: b.Type}
	}
	if err := analyzer.ValidateGlobals(globals); err != nil {
		return nil, &errors.ApiError{Message: err.Error()}
	}
	return &Engine{
		reg:      types.NewRegistry(),
		bindings: append([]Binding(nil), initEnv...),
		globals:  globals,
		opts:     opts,
	}, nil
}

// Types exposes the Engine's shared type registry, so a caller can
// intern the *types.Type values it needs to describe Params before
// calling Compile.
func (e *Engine) Types() *types.Registry { return e.reg }

// CompiledExpression is melbi source bound to a fixed parameter list
// and compiled against one Engine's globals (spec §6.1
// CompiledExpression). It is safe to call Run/RunUnchecked from
// multiple goroutines concurrently: each call builds its own VM/
// Evaluator and value.Arena.
type CompiledExpression struct {
	engine     *Engine
	params     []Param
	returnType *types.Type
	code       *compiler.Code
	root       typedast.Node
	gslots     map[string]int
}

// Params returns the parameter list this expression was compiled with
// (spec §6.1 CompiledExpression::params).
func (ce *CompiledExpression) Params() []Param { return append([]Param(nil), ce.params...) }

// ReturnType returns the expression's inferred result type (spec §6.1
// CompiledExpression::return_type).
func (ce *CompiledExpression) ReturnType() *types.Type { return ce.returnType }

// Compile parses, type-checks, and compiles source against the
// Engine's bindings plus the supplied params (spec §6.1
// Engine::compile). Parse and type errors are returned together as a
// single *errors.CompilationError; params' names must not collide with
// an engine-wide binding or with each other, reported as an Api error
// since it is caller misuse rather than a fault in the source text.
func (e *Engine) Compile(source string, params []Param, _ ...CompileOptions) (*CompiledExpression, error) {
	combined := make([]analyzer.Global, 0, len(e.globals)+len(params))
	combined = append(combined, e.globals...)
	for _, p := range params {
		combined = append(combined, analyzer.Global{Name: p.Name, Type: p.Type})
	}
	if err := analyzer.ValidateGlobals(combined); err != nil {
		return nil, &errors.ApiError{Message: err.Error()}
	}

	arena, root, pdiags := parser.ParseExpr(source)
	if len(pdiags) > 0 {
		return nil, &errors.CompilationError{Diagnostics: pdiags, Source: source}
	}

	typed, diags := analyzer.Check(e.reg, arena, root, combined)
	if len(diags) > 0 {
		return nil, &errors.CompilationError{Diagnostics: diags, Source: source}
	}

	gslots := make(map[string]int, len(combined))
	for i, g := range combined {
		gslots[g.Name] = i
	}
	code := compiler.Compile(e.reg, gslots, typed)

	return &CompiledExpression{
		engine:     e,
		params:     append([]Param(nil), params...),
		returnType: typed.Root.ResolvedType(),
		code:       code,
		root:       typed.Root,
		gslots:     gslots,
	}, nil
}

// mergedRunOptions returns the last supplied override wholesale, or
// base if none was given. RunOptions has no Option<T> fields (spec
// §6.1's Rust override structs do), so a caller wanting to change one
// field of the engine's default must pass a full RunOptions copied
// from that default rather than a sparse override.
func mergedRunOptions(base RunOptions, overrides []RunOptions) RunOptions {
	if len(overrides) == 0 {
		return base
	}
	return overrides[len(overrides)-1]
}

// Run validates args against params (count and, by pointer identity on
// interned types, type) before executing, matching spec §8's scenario
// 7 wording exactly: a count mismatch is reported as "Argument count
// mismatch", and a type mismatch as "Type mismatch for parameter N".
func (ce *CompiledExpression) Run(args []value.Value, opts ...RunOptions) (value.Value, error) {
	if len(args) != len(ce.params) {
		return value.Value{}, &errors.ApiError{Message: "Argument count mismatch"}
	}
	for i, p := range ce.params {
		if !args[i].Typ.Equals(p.Type) {
			return value.Value{}, &errors.ApiError{Message: fmt.Sprintf("Type mismatch for parameter %d", i)}
		}
	}
	return ce.RunUnchecked(args, opts...)
}

// RunUnchecked executes without validating args against params (spec
// §6.1 CompiledExpression::run_unchecked): a mismatched count or type
// here is an internal inconsistency (panic), not a user-facing Api
// error, since the caller opted out of the check.
func (ce *CompiledExpression) RunUnchecked(args []value.Value, opts ...RunOptions) (value.Value, error) {
	ro := mergedRunOptions(ce.engine.opts.DefaultRunOptions, opts)

	if len(args) != len(ce.params) {
		panic("engine: RunUnchecked called with wrong argument count")
	}
	globalVals := make([]value.Value, len(ce.gslots))
	for _, b := range ce.engine.bindings {
		globalVals[ce.gslots[b.Name]] = b.Value
	}
	for i, p := range ce.params {
		globalVals[ce.gslots[p.Name]] = args[i]
	}

	runOne := func(mode Mode) (value.Value, error) {
		arena := value.NewArena()
		ffi := value.NewFfiContext(ce.engine.reg, arena)
		switch mode {
		case ModeVM:
			m := vm.New(ce.engine.reg, ffi, vm.Limits{MaxDepth: ro.MaxDepth, MaxIterations: ro.MaxIterations})
			return m.Run(ce.code, globalVals)
		case ModeTree:
			globalMap := make(map[string]value.Value, len(ce.gslots))
			for name, idx := range ce.gslots {
				globalMap[name] = globalVals[idx]
			}
			ev := treeeval.New(ce.engine.reg, ffi, treeeval.Limits{MaxDepth: ro.MaxDepth, MaxIterations: ro.MaxIterations})
			return ev.Run(ce.root, globalMap)
		default:
			panic("engine: unknown Mode")
		}
	}

	switch ro.Mode {
	case ModeVM, ModeTree:
		return runOne(ro.Mode)
	default:
		vmResult, vmErr := runOne(ModeVM)
		treeResult, treeErr := runOne(ModeTree)
		if (vmErr == nil) != (treeErr == nil) {
			return value.Value{}, fmt.Errorf("engine: backend disagreement on error: vm=%v tree=%v", vmErr, treeErr)
		}
		if vmErr != nil {
			return value.Value{}, vmErr
		}
		if !value.Equal(vmResult, treeResult) {
			return value.Value{}, fmt.Errorf("engine: backend disagreement on result: vm=%s tree=%s", vmResult.String(), treeResult.String())
		}
		return vmResult, nil
	}
}
