// Package vm executes internal/compiler's bytecode (spec §4.4.2): a
// shared operand stack, a call-frame stack for locals/captures, and an
// otherwise-frame stack implementing `otherwise`'s catch semantics.
// Grounded on the teacher's own tree-walking internal/eval loop for
// its "one big switch per node/opcode, explicit error returns, no
// panics across a user expression boundary" discipline; the stack
// machine and frame/otherwise-frame shape themselves are melbi-
// specific (the teacher has no bytecode VM of its own).
package vm

import (
	"github.com/melbi-lang/melbi/internal/compiler"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// Limits bounds one Run call (spec §6.1 RunOptions): MaxDepth caps
// nested calls (recursion isn't reachable from surface melbi's syntax,
// but closures passed around as values can still call each other
// indirectly), MaxIterations caps total instructions executed. A zero
// MaxIterations means unlimited.
type Limits struct {
	MaxDepth      int
	MaxIterations uint64
}

// DefaultLimits matches spec §6.1's documented defaults.
var DefaultLimits = Limits{MaxDepth: 1000, MaxIterations: 0}

type frame struct {
	code     *compiler.Code
	ip       int
	locals   []value.Value
	captures []value.Value
}

type otherwiseEntry struct {
	frameDepth int // len(frames) to truncate back to on catch
	fallbackIP int
	stackDepth int
}

// VM is single-use: construct one per Run call via New, call Run once.
type VM struct {
	reg    *types.Registry
	ffi    *value.FfiContext
	limits Limits
	trace  func(label string)

	globals []value.Value

	stack      []value.Value
	frames     []*frame
	otherwise  []otherwiseEntry
	pendingTyp []*types.Type
	pendingSig string
	steps      uint64
}

func New(reg *types.Registry, ffi *value.FfiContext, limits Limits) *VM {
	return &VM{reg: reg, ffi: ffi, limits: limits}
}

// SetTrace installs a hook called for each OpTrace instruction the VM
// executes, with the label string baked in by internal/compiler. A nil
// hook (the default) makes OpTrace a pure no-op, matching the
// original's reserved-for-debug Trace instruction.
func (m *VM) SetTrace(hook func(label string)) { m.trace = hook }

// Run executes code to completion with globals bound by slot index
// (OpLoadGlobal's operand, resolved once at compile time by
// internal/compiler — the VM never looks a global up by name).
func (m *VM) Run(code *compiler.Code, globals []value.Value) (value.Value, error) {
	m.globals = globals
	m.frames = []*frame{{code: code, locals: make([]value.Value, code.NumLocals)}}
	return m.loop()
}

func (m *VM) push(v value.Value) { m.stack = append(m.stack, v) }
func (m *VM) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}
func (m *VM) popN(n int) []value.Value {
	out := make([]value.Value, n)
	copy(out, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return out
}

func (m *VM) runtimeErr(code, msg string) error {
	return &errors.RuntimeError{Diagnostic: errors.New(code, msg, errors.Span{})}
}

// loop is the fetch-decode-execute cycle. Control-flow instructions
// (jumps, call, return) mutate fr.ip / m.frames directly inside step;
// everything else just falls through to the next instruction.
func (m *VM) loop() (value.Value, error) {
	for len(m.frames) > 0 {
		fr := m.frames[len(m.frames)-1]
		if fr.ip >= len(fr.code.Instrs) {
			return value.Value{}, m.runtimeErr(errors.RunPatternExhausted, "instruction stream ended without return")
		}
		instr := fr.code.Instrs[fr.ip]
		fr.ip++

		m.steps++
		if m.limits.MaxIterations != 0 && m.steps > m.limits.MaxIterations {
			return value.Value{}, &errors.ResourceExceededError{Message: "iteration limit exceeded"}
		}

		if err := m.step(fr, instr); err != nil {
			if _, fatal := err.(*errors.ResourceExceededError); fatal {
				return value.Value{}, err
			}
			if len(m.otherwise) == 0 || !errors.IsCatchableByOtherwise(err) {
				return value.Value{}, err
			}
			oe := m.otherwise[len(m.otherwise)-1]
			m.otherwise = m.otherwise[:len(m.otherwise)-1]
			m.frames = m.frames[:oe.frameDepth]
			m.stack = m.stack[:oe.stackDepth]
			m.frames[len(m.frames)-1].ip = oe.fallbackIP
		}
	}
	return m.pop(), nil
}
