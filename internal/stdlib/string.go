package stdlib

import (
	"strconv"
	"strings"

	"github.com/melbi-lang/melbi/internal/engine"
	"github.com/melbi-lang/melbi/internal/ffi"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

func unaryStrToBool(name string, reg *types.Registry, fn func(string) bool) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Str()},
		ReturnType: reg.Bool(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Bool(ctx.Types, fn(args[0].AsStr())), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

func unaryStrToStr(name string, reg *types.Registry, fn func(string) string) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Str()},
		ReturnType: reg.Str(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Str(ctx.Types, fn(args[0].AsStr())), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

func binaryStrToBool(name string, reg *types.Registry, fn func(a, b string) bool) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       name,
		ParamTypes: []*types.Type{reg.Str(), reg.Str()},
		ReturnType: reg.Bool(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Bool(ctx.Types, fn(args[0].AsStr(), args[1].AsStr())), nil
		},
	})
	return engine.Binding{Name: name, Type: fnType, Value: fnVal}
}

// String returns melbi's `String` native package: inspection
// (Len/IsEmpty/Contains/StartsWith/EndsWith), transformation (Upper/
// Lower/Trim/TrimStart/TrimEnd/Replace/ReplaceN), splitting/joining
// (Split/Join), extraction (Substring), and parsing (ToInt/ToFloat)
// (original_source/core/src/stdlib/string.rs). Len counts codepoints,
// matching the original's explicit "UTF-8 codepoint count, not byte
// count" contract; Upper/Lower stay ASCII-only for the same reason the
// original documents: full Unicode case mapping belongs to a (not yet
// ported) Unicode package, not this one.
func String(reg *types.Registry) []engine.Binding {
	return []engine.Binding{
		stringLen(reg),
		unaryStrToBool("IsEmpty", reg, func(s string) bool { return len(s) == 0 }),
		binaryStrToBool("Contains", reg, strings.Contains),
		binaryStrToBool("StartsWith", reg, strings.HasPrefix),
		binaryStrToBool("EndsWith", reg, strings.HasSuffix),
		unaryStrToStr("Upper", reg, asciiUpper),
		unaryStrToStr("Lower", reg, asciiLower),
		unaryStrToStr("Trim", reg, strings.TrimSpace),
		unaryStrToStr("TrimStart", reg, func(s string) string { return strings.TrimLeft(s, " \t\n\r\v\f") }),
		unaryStrToStr("TrimEnd", reg, func(s string) string { return strings.TrimRight(s, " \t\n\r\v\f") }),
		replaceBinding(reg),
		replaceNBinding(reg),
		splitBinding(reg),
		joinBinding(reg),
		substringBinding(reg),
		toIntBinding(reg),
		toFloatBinding(reg),
	}
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func stringLen(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Len",
		ParamTypes: []*types.Type{reg.Str()},
		ReturnType: reg.Int(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			return value.Int(ctx.Types, int64(len([]rune(args[0].AsStr())))), nil
		},
	})
	return engine.Binding{Name: "Len", Type: fnType, Value: fnVal}
}

func replaceBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Replace",
		ParamTypes: []*types.Type{reg.Str(), reg.Str(), reg.Str()},
		ReturnType: reg.Str(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			s, from, to := args[0].AsStr(), args[1].AsStr(), args[2].AsStr()
			return value.Str(ctx.Types, strings.ReplaceAll(s, from, to)), nil
		},
	})
	return engine.Binding{Name: "Replace", Type: fnType, Value: fnVal}
}

func replaceNBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "ReplaceN",
		ParamTypes: []*types.Type{reg.Str(), reg.Str(), reg.Str(), reg.Int()},
		ReturnType: reg.Str(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			s, from, to, n := args[0].AsStr(), args[1].AsStr(), args[2].AsStr(), args[3].AsInt()
			return value.Str(ctx.Types, strings.Replace(s, from, to, int(n))), nil
		},
	})
	return engine.Binding{Name: "ReplaceN", Type: fnType, Value: fnVal}
}

func splitBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Split",
		ParamTypes: []*types.Type{reg.Str(), reg.Str()},
		ReturnType: reg.Array(reg.Str()),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			s, delim := args[0].AsStr(), args[1].AsStr()
			var parts []string
			if delim == "" {
				for _, r := range s {
					parts = append(parts, string(r))
				}
			} else {
				parts = strings.Split(s, delim)
			}
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.Str(ctx.Types, p)
			}
			return value.Array(ctx.Types, ctx.Types.Str(), elems)
		},
	})
	return engine.Binding{Name: "Split", Type: fnType, Value: fnVal}
}

func joinBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Join",
		ParamTypes: []*types.Type{reg.Array(reg.Str()), reg.Str()},
		ReturnType: reg.Str(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			arr, sep := args[0], args[1].AsStr()
			parts := make([]string, arr.ArrayLen())
			for i := range parts {
				parts[i] = arr.ArrayAt(i).AsStr()
			}
			return value.Str(ctx.Types, strings.Join(parts, sep)), nil
		},
	})
	return engine.Binding{Name: "Join", Type: fnType, Value: fnVal}
}

// substringBinding extracts by codepoint index, clamping end to the
// string's length and returning "" whenever start is out of range or
// start >= end, matching original_source's documented edge cases
// exactly.
func substringBinding(reg *types.Registry) engine.Binding {
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "Substring",
		ParamTypes: []*types.Type{reg.Str(), reg.Int(), reg.Int()},
		ReturnType: reg.Str(),
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			runes := []rune(args[0].AsStr())
			start, end := int(args[1].AsInt()), int(args[2].AsInt())
			if end > len(runes) {
				end = len(runes)
			}
			if start < 0 || start >= len(runes) || start >= end {
				return value.Str(ctx.Types, ""), nil
			}
			return value.Str(ctx.Types, string(runes[start:end])), nil
		},
	})
	return engine.Binding{Name: "Substring", Type: fnType, Value: fnVal}
}

func toIntBinding(reg *types.Registry) engine.Binding {
	optType := reg.Option(reg.Int())
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "ToInt",
		ParamTypes: []*types.Type{reg.Str()},
		ReturnType: optType,
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			n, err := strconv.ParseInt(args[0].AsStr(), 10, 64)
			if err != nil {
				return value.None(ctx.Types, ctx.Types.Int()), nil
			}
			return value.Some(ctx.Types, ctx.Types.Int(), value.Int(ctx.Types, n))
		},
	})
	return engine.Binding{Name: "ToInt", Type: fnType, Value: fnVal}
}

func toFloatBinding(reg *types.Registry) engine.Binding {
	optType := reg.Option(reg.Float())
	fnType, fnVal := ffi.Func(reg, ffi.Spec{
		Name:       "ToFloat",
		ParamTypes: []*types.Type{reg.Str()},
		ReturnType: optType,
		Fn: func(ctx *value.FfiContext, args []value.Value) (value.Value, error) {
			f, err := strconv.ParseFloat(args[0].AsStr(), 64)
			if err != nil {
				return value.None(ctx.Types, ctx.Types.Float()), nil
			}
			return value.Some(ctx.Types, ctx.Types.Float(), value.Float(ctx.Types, f))
		},
	})
	return engine.Binding{Name: "ToFloat", Type: fnType, Value: fnVal}
}
