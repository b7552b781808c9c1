package analyzer

import (
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/types"
)

// solve checks every accumulated type-class and Containable constraint
// against the current substitution (spec §4.3.2 "Constraint solving").
// A constraint whose type is still a bare, unbound TypeVar at this
// point is left to defaulting (numeric) or reported there (anything
// else) rather than flagged twice.
func (c *Checker) solve() {
	for _, ct := range c.constraints {
		resolved := c.apply(ct.typ)
		if resolved.Kind == types.KTypeVar {
			continue
		}
		if !types.HasInstance(ct.class, resolved) {
			c.errorf(errors.TypClassUnsatisfied, ct.span, "%s requires %s, found %s", ct.what, ct.class, resolved)
		}
	}
	for _, ct := range c.containable {
		needle := c.apply(ct.needle)
		haystack := c.apply(ct.haystack)
		if needle.Kind == types.KTypeVar || haystack.Kind == types.KTypeVar {
			continue
		}
		if !types.Containable(needle, haystack) {
			c.errorf(errors.TypClassUnsatisfied, ct.span, "%s cannot contain %s", haystack, needle)
		}
	}
}
