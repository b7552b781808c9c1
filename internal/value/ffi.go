package value

import "github.com/melbi-lang/melbi/internal/types"

// FfiContext bundles the (type-registry, value-arena) pair so a
// marshalling shim can construct result values and containers without
// re-threading both through every call site (spec §4.1.4).
type FfiContext struct {
	Types *types.Registry
	Arena *Arena
}

// NewFfiContext builds an FfiContext for one native-function call.
func NewFfiContext(types *types.Registry, arena *Arena) *FfiContext {
	return &FfiContext{Types: types, Arena: arena}
}
