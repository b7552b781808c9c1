// Package compiler lowers melbi's typed AST (internal/typedast) into
// linear bytecode for internal/vm (spec §4.4.1). The teacher repo has
// no bytecode backend of its own (it type-checks and evaluates a
// dependency graph directly); the instruction set below is melbi's
// own, but the "one linear []Instr stream, jumps as patched integer
// offsets, values self-describing via an attached Type" shape follows
// the same keep-it-simple, no-unsafe discipline the teacher applies to
// its own internal/types and internal/eval packages, and the pack's
// other VM-shaped code (tengo's op.go, cel-go's interpretable tree) for
// instruction-set naming.
//
// Because every value.Value already carries its own *types.Type (spec
// §3.3), arithmetic and comparison do not need separate Int/Float
// opcodes: one OpArith/OpCompare instruction carries the operator as
// its immediate, and internal/vm switches on the operand's Typ.Kind at
// run time, exactly mirroring how internal/treeeval will dispatch the
// same operator over the same values.
package compiler

// Opcode is one melbi bytecode operation (spec §4.4.1). Every
// instruction is one Opcode plus one int32 immediate; OpWideArg
// prefixes chain to extend an immediate past int32 when Arg alone
// cannot hold it (reserved for future wide constant-pool indices; the
// current compiler never emits one, since Go's slice-indexed pools
// have no practical size limit that int32 can't address).
type Opcode uint8

const (
	OpNop Opcode = iota
	OpWideArg

	OpConst // push Constants[Arg]
	OpPop
	OpDup

	OpLoadLocal
	OpStoreLocal
	OpLoadCapture
	OpLoadGlobal

	OpArith   // Arg selects ArithOp; pops right, left; pushes result
	OpCompare // Arg selects CompareOp; pops right, left; pushes Bool
	OpEq
	OpNeq
	OpNot
	OpNeg
	OpContains // pops haystack, needle; pushes Bool (`in` / `not in`, Arg=1 negates)

	OpJump           // unconditional, Arg = absolute instruction index
	OpJumpIfFalse    // peeks top, does not pop (AND short-circuit)
	OpJumpIfTrue     // peeks top, does not pop (OR short-circuit)
	OpPopJumpIfFalse // pops top; jumps if false
	OpPopJumpIfTrue  // pops top; jumps if true

	OpPushOtherwise // Arg = absolute instruction index of the fallback
	OpPopOtherwise  // discard the top-of-otherwise-stack frame (primary path succeeded)

	OpPushType   // Arg = index into the current Code's Types pool; queues a type for the next Make*/Cast instruction
	OpMakeArray  // Arg = element count; consumes one queued type (element type)
	OpMakeRecord // Arg = field count; consumes one queued type (the record type)
	OpMakeMap    // Arg = entry count; consumes two queued types (key type, value type)
	OpMakeSome   // consumes one queued type (the Option type)
	OpMakeNone   // consumes one queued type (the Option type)

	OpFieldGet // Arg = pre-resolved field index
	OpIndexGet

	OpMatchSome // pops Option; Some: pushes inner, falls through; None: jumps to Arg
	OpMatchNone // pops Option; None: falls through; Some: jumps to Arg

	OpMakeClosure // Arg = index into the current Code's Lambdas pool
	OpCallSig     // Arg = index into the current Code's Signatures pool; selects dispatch for the following OpCall
	OpCall        // Arg = argument count
	OpCast        // consumes one queued type (the cast target)
	OpFormat      // Arg = index into the current Code's Formats pool; consumes len(Strs)-1 queued values

	OpReturn

	OpTrace // Arg = index into the current Code's Constants pool (a label); no-op unless the VM runs in trace mode
)

// ArithOp is OpArith's immediate.
type ArithOp int32

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithPow
)

// CompareOp is OpCompare's immediate.
type CompareOp int32

const (
	CmpLt CompareOp = iota
	CmpGt
	CmpLte
	CmpGte
)

// Instr is one bytecode instruction. internal/vm consumes []Instr
// directly (internal/treeeval walks typedast instead); there is no separate byte-level
// encoding step, since melbi embeds rather than ships compiled
// artifacts across a process boundary (spec §2, "embeddable").
type Instr struct {
	Op  Opcode
	Arg int32
}
