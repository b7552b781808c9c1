// Package ffi is melbi's native-function registration and marshalling
// layer (spec §4.1.4, §6.3): `internal/stdlib` and any embedder build
// native functions by declaring a Spec and letting Func wrap it into a
// value.Value the engine can bind, and FromJSON/ToJSON bridge melbi
// values to and from JSON text for native functions that need to talk
// to the outside world.
//
// Grounded on the teacher's internal/eval/builtins*.go registration
// style (one BuiltinFunc record per native function, explicit
// table-construction instead of reflection or codegen) and
// internal/eval/builtins_json.go for the recursive
// value-tree<->JSON-tree shape, adapted from AILANG's dynamically
// typed Json ADT to melbi's statically typed value model (every
// FromJSON call is driven by a target *types.Type, and ToJSON walks
// the value's own carried Type rather than a separate ADT).
package ffi

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// Spec declares one native function: its melbi-visible name, its
// function type, and the Go implementation the engine guarantees
// argument count/type conformance for before calling (spec §6.3).
type Spec struct {
	Name       string
	ParamTypes []*types.Type
	ReturnType *types.Type
	Fn         func(ctx *value.FfiContext, args []value.Value) (value.Value, error)
}

// Func builds the (Type, Value) pair a Spec needs to become an
// engine.Binding. The registry is needed to intern the function's own
// Type; the FuncObj itself carries no registry reference so a single
// Spec can be bound into engines built from different registries.
func Func(reg *types.Registry, spec Spec) (*types.Type, value.Value) {
	fnType := reg.Function(spec.ParamTypes, spec.ReturnType)
	fo := &value.FuncObj{Name: spec.Name, Native: spec.Fn}
	return fnType, value.Function(reg, fnType, fo)
}

// ToJSON serializes a melbi value to JSON text, driven by the Type
// carried on the value itself: Int/Float become JSON numbers, Str
// becomes a JSON string, Bytes becomes a base64-encoded JSON string,
// None/Some unwrap to null/the inner value, Array/Record become JSON
// arrays/objects. Map requires a Str-keyed map (JSON object keys are
// always strings); a non-Str key type is an error.
func ToJSON(v value.Value) (string, error) {
	switch v.Typ.Kind {
	case types.KInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case types.KFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64), nil
	case types.KBool:
		return strconv.FormatBool(v.AsBool()), nil
	case types.KStr:
		return quoteJSONString(v.AsStr()), nil
	case types.KBytes:
		return quoteJSONString(base64.StdEncoding.EncodeToString(v.AsBytes())), nil
	case types.KOption:
		if v.IsNone() {
			return "null", nil
		}
		return ToJSON(v.Unwrap())
	case types.KArray:
		out := "[]"
		for i := 0; i < v.ArrayLen(); i++ {
			elemJSON, err := ToJSON(v.ArrayAt(i))
			if err != nil {
				return "", fmt.Errorf("array element %d: %w", i, err)
			}
			out, err = sjson.SetRaw(out, strconv.Itoa(i), elemJSON)
			if err != nil {
				return "", fmt.Errorf("array element %d: %w", i, err)
			}
		}
		return out, nil
	case types.KRecord:
		out := "{}"
		for _, f := range v.Typ.Fields {
			fieldJSON, err := ToJSON(v.Field(fieldIndex(v.Typ, f.Name)))
			if err != nil {
				return "", fmt.Errorf("field %q: %w", f.Name, err)
			}
			out, err = sjson.SetRaw(out, f.Name, fieldJSON)
			if err != nil {
				return "", fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		return out, nil
	case types.KMap:
		if v.Typ.Key.Kind != types.KStr {
			return "", fmt.Errorf("ToJSON: map key type must be Str, got %s", v.Typ.Key)
		}
		out := "{}"
		for i := 0; i < v.MapLen(); i++ {
			k, val := v.MapEntryAt(i)
			valJSON, err := ToJSON(val)
			if err != nil {
				return "", fmt.Errorf("map key %q: %w", k.AsStr(), err)
			}
			out, err = sjson.SetRaw(out, k.AsStr(), valJSON)
			if err != nil {
				return "", fmt.Errorf("map key %q: %w", k.AsStr(), err)
			}
		}
		return out, nil
	default:
		return "", fmt.Errorf("ToJSON: unsupported type %s", v.Typ)
	}
}

// fieldIndex finds the slot of name in t's alphabetically sorted Field
// list, matching the index Value.Field expects (spec §4.1.2 "record
// construction sorts fields by name").
func fieldIndex(t *types.Type, name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	panic(fmt.Sprintf("ffi: field %q not found on %s", name, t))
}

// quoteJSONString mirrors the teacher's encodeJSONString
// (internal/eval/builtins_json.go): JSON string escaping with
// surrogate-pair encoding for astral characters.
func quoteJSONString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else if r > 0xFFFF {
				r1 := ((r - 0x10000) >> 10) + 0xD800
				r2 := ((r - 0x10000) & 0x3FF) + 0xDC00
				fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FromJSON parses json and converts it into a melbi value of type
// target, recursing through target's structure the way the teacher's
// interfaceToJSON recurses through a decoded interface{} tree — except
// here the target Type drives the conversion instead of a separate
// dynamically-typed Json ADT, since melbi has no such ADT to land in.
func FromJSON(reg *types.Registry, target *types.Type, jsonText string) (value.Value, error) {
	if !gjson.Valid(jsonText) {
		return value.Value{}, fmt.Errorf("FromJSON: invalid JSON")
	}
	return fromJSON(reg, target, gjson.Parse(jsonText))
}

func fromJSON(reg *types.Registry, target *types.Type, r gjson.Result) (value.Value, error) {
	switch target.Kind {
	case types.KInt:
		if r.Type != gjson.Number {
			return value.Value{}, fmt.Errorf("FromJSON: expected number for Int, got %s", r.Type)
		}
		return value.Int(reg, r.Int()), nil
	case types.KFloat:
		if r.Type != gjson.Number {
			return value.Value{}, fmt.Errorf("FromJSON: expected number for Float, got %s", r.Type)
		}
		return value.Float(reg, r.Float()), nil
	case types.KBool:
		if r.Type != gjson.True && r.Type != gjson.False {
			return value.Value{}, fmt.Errorf("FromJSON: expected bool, got %s", r.Type)
		}
		return value.Bool(reg, r.Bool()), nil
	case types.KStr:
		if r.Type != gjson.String {
			return value.Value{}, fmt.Errorf("FromJSON: expected string, got %s", r.Type)
		}
		return value.Str(reg, r.String()), nil
	case types.KBytes:
		if r.Type != gjson.String {
			return value.Value{}, fmt.Errorf("FromJSON: expected base64 string for Bytes, got %s", r.Type)
		}
		b, err := base64.StdEncoding.DecodeString(r.String())
		if err != nil {
			return value.Value{}, fmt.Errorf("FromJSON: invalid base64 for Bytes: %w", err)
		}
		return value.Bytes(reg, b), nil
	case types.KOption:
		if !r.Exists() || r.Type == gjson.Null {
			return value.None(reg, target.Elem), nil
		}
		inner, err := fromJSON(reg, target.Elem, r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Some(reg, target.Elem, inner)
	case types.KArray:
		if !r.IsArray() {
			return value.Value{}, fmt.Errorf("FromJSON: expected JSON array, got %s", r.Type)
		}
		elems := []value.Value{}
		var elemErr error
		r.ForEach(func(_, elem gjson.Result) bool {
			v, err := fromJSON(reg, target.Elem, elem)
			if err != nil {
				elemErr = err
				return false
			}
			elems = append(elems, v)
			return true
		})
		if elemErr != nil {
			return value.Value{}, elemErr
		}
		return value.Array(reg, target.Elem, elems)
	case types.KRecord:
		if !r.IsObject() {
			return value.Value{}, fmt.Errorf("FromJSON: expected JSON object, got %s", r.Type)
		}
		fields := make(map[string]value.Value, len(target.Fields))
		for _, f := range target.Fields {
			child := r.Get(f.Name)
			if !child.Exists() {
				return value.Value{}, fmt.Errorf("FromJSON: missing field %q", f.Name)
			}
			v, err := fromJSON(reg, f.Type, child)
			if err != nil {
				return value.Value{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
			fields[f.Name] = v
		}
		return value.Record(target, fields)
	case types.KMap:
		if target.Key.Kind != types.KStr {
			return value.Value{}, fmt.Errorf("FromJSON: map key type must be Str, got %s", target.Key)
		}
		if !r.IsObject() {
			return value.Value{}, fmt.Errorf("FromJSON: expected JSON object, got %s", r.Type)
		}
		var pairs []struct {
			Key value.Value
			Val value.Value
		}
		var entryErr error
		r.ForEach(func(key, val gjson.Result) bool {
			v, err := fromJSON(reg, target.Value, val)
			if err != nil {
				entryErr = fmt.Errorf("map key %q: %w", key.String(), err)
				return false
			}
			pairs = append(pairs, struct {
				Key value.Value
				Val value.Value
			}{value.Str(reg, key.String()), v})
			return true
		})
		if entryErr != nil {
			return value.Value{}, entryErr
		}
		return value.Map(reg, target.Key, target.Value, pairs)
	default:
		return value.Value{}, fmt.Errorf("FromJSON: unsupported target type %s", target)
	}
}
