// Package stdlib is melbi's example standard library: two native
// packages (Math, String) exercising internal/ffi's registration
// shape end to end, returned as []engine.Binding ready to hand to
// engine.New. It is deliberately small — spec.md's Non-goals exclude
// "the standard-library content itself", so this package exists only
// to prove the FFI shape the core actually consumes, matching
// SPEC_FULL.md's supplement of original_source's core/src/stdlib
// (math.rs, string.rs).
//
// Grounded on the teacher's internal/eval/builtins_arithmetic.go and
// builtins_string.go: one registration function per package, a plain
// Go function body per builtin, no macro/codegen layer — melbi has no
// equivalent of original_source's #[melbi_fn]/#[melbi_package] proc
// macros, so each binding here is spelled out by hand via
// internal/ffi.Func the way the teacher spells out each BuiltinFunc by
// hand.
package stdlib

import (
	"math"

	"github.com/melbi-lang/melbi/internal/engine"
	"github.com/melbi-lang/melbi/internal/ffi"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

func unaryFloat(name string, reg *types.Registry, fn func(float64) float64) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Float()},
		ReturnType: reg.Float(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Float(ctx.Types, fn(args[0].AsFloat())), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

func unaryFloatToInt(name string, reg *types.Registry, fn func(float64) float64) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Float()},
		ReturnType: reg.Int(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Int(ctx.Types, int64(fn(args[0].AsFloat()))), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

func binaryFloat(name string, reg *types.Registry, fn func(a, b float64) float64) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Float(), reg.Float()},
		ReturnType: reg.Float(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Float(ctx.Types, fn(args[0].AsFloat(), args[1].AsFloat())), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

func floatConst(name string, reg *types.Registry, v float64) engine.Binding {
	return engine.Binding{Name: name, Type: reg.Float(), Value: value.Float(reg, v)}
}

// Math returns melbi's `Math` native package: Abs/Min/Max/Clamp/Floor/
// Ceil/Round/Sqrt/Pow/Sin/Cos/Tan/Asin/Acos/Atan/Atan2/Log/Log10/Exp
// plus the constants PI/E/TAU/INFINITY/NAN (original_source/core/src/
// stdlib/math.rs). Every function and constant operates on Float;
// melbi's Int is a distinct type and the analyzer's `as` cast is the
// documented way to cross between them (spec §4.2.1).
func Math(reg *types.Registry) []engine.Binding {
	return []engine.Binding{
		unaryFloat("Abs", reg, math.Abs),
		binaryFloat("Min", reg, math.Min),
		binaryFloat("Max", reg, math.Max),
		clampBinding(reg),
		unaryFloatToInt("Floor", reg, math.Floor),
		unaryFloatToInt("Ceil", reg, math.Ceil),
		unaryFloatToInt("Round", reg, math.Round),
		unaryFloat("Sqrt", reg, math.Sqrt),
		binaryFloat("Pow", reg, math.Pow),
		unaryFloat("Sin", reg, math.Sin),
		unaryFloat("Cos", reg, math.Cos),
		unaryFloat("Tan", reg, math.Tan),
		unaryFloat("Asin", reg, math.Asin),
		unaryFloat("Acos", reg, math.Acos),
		unaryFloat("Atan", reg, math.Atan),
		binaryFloat("Atan2", reg, math.Atan2),
		unaryFloat("Log", reg, math.Log),
		unaryFloat("Log10", reg, math.Log10),
		unaryFloat("Exp", reg, math.Exp),
		floatConst("PI", reg, math.Pi),
		floatConst("E", reg, math.E),
		floatConst("TAU", reg, 2*math.Pi),
		floatConst("INFINITY", reg, math.Inf(1)),
		floatConst("NAN", reg, math.NaN()),
	}
}

func clampBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Clamp",
		ParamTypes: []*types.Type{reg.Float(), reg.Float(), reg.Float()},
		ReturnType: reg.Float(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			v, lo, hi := args[0].AsFloat(), args[1].AsFloat(), args[2].AsFloat()
			switch {
			case v < lo:
				return value.Float(ctx.Types, lo), nil
			case v > hi:
				return value.Float(ctx.Types, hi), nil
			default:
				return value.Float(ctx.Types, v), nil
			}
		},
	})
	return engine.Binding{Name: "Clamp", Type: fnType, Value: fnVal}
}
