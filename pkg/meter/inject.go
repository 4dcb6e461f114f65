// Package meter implements the Meter Injector (§4.B of SPEC_FULL.md): a
// static bytecode rewrite that adds a per-block instruction-budget check
// to a compiled guest module before it is ever instantiated.
package meter

import "github.com/kristofer/sandvm/pkg/wasm"

// PreambleInstructionCount is the number of instructions prepended to each
// basic block. spec.md's own design notes describe an eight-instruction
// preamble for its native bytecode ISA, which has a combined compare-and-
// trap opcode; WebAssembly has no such opcode; so here the trap path is an
// explicit if/unreachable/end, bringing the count to ten. See SPEC_FULL.md
// §5 for the full accounting. Callers deriving a safety slack for the
// Fault Classifier (§4.F) should multiply from this constant rather than
// hard-code a second copy of it.
const PreambleInstructionCount = 10

const (
	resetInstructionsName = "reset_instructions"
	getInstructionsName   = "get_instructions"
)

// Inject rewrites m in place: it adds a mutable instruction-counter
// global, prepends a budget-check-and-decrement preamble to every basic
// block of every defined function, and appends the reset_instructions/
// get_instructions exports the Guest ABI (§4.C) requires. m is mutated
// and also returned for convenience.
//
// Inject is not idempotent: calling it twice on the same module doubles
// the preambles and adds duplicate exports. Callers are responsible for
// injecting each compiled module exactly once (§4.B).
func Inject(m *wasm.Module) (*wasm.Module, error) {
	insIdx := m.AddGlobal(true, 0)

	for _, fn := range m.Funcs {
		fn.Instructions = injectFunction(fn, insIdx)
	}

	addHelperFunctions(m, insIdx)

	return m, nil
}

// injectFunction returns fn's instructions with a budget preamble
// prepended to each basic block, computed from fn's pre-injection block
// boundaries so that a block's cost never counts its own preamble.
func injectFunction(fn *wasm.Function, insIdx uint32) []wasm.Instruction {
	blocks := fn.Blocks()

	out := make([]wasm.Instruction, 0, len(fn.Instructions)+len(blocks)*PreambleInstructionCount)
	for _, b := range blocks {
		cost := int32(b.End - b.Start)
		out = append(out, preamble(insIdx, cost)...)
		out = append(out, fn.Instructions[b.Start:b.End]...)
	}
	return out
}

// preamble returns the budget check and decrement for a single block:
// trap if the remaining budget is less than cost, otherwise subtract
// cost from it.
func preamble(insIdx uint32, cost int32) []wasm.Instruction {
	return []wasm.Instruction{
		{Op: wasm.OpGlobalGet, Index: insIdx},
		{Op: wasm.OpI32Const, I32: cost},
		{Op: wasm.OpI32LtU},
		{Op: wasm.OpIf, I32: 0x40},
		{Op: wasm.OpUnreachable},
		{Op: wasm.OpEnd},
		{Op: wasm.OpGlobalGet, Index: insIdx},
		{Op: wasm.OpI32Const, I32: cost},
		{Op: wasm.OpI32Sub},
		{Op: wasm.OpGlobalSet, Index: insIdx},
	}
}

// addHelperFunctions appends and exports reset_instructions(i32)->() and
// get_instructions()->i32, the two functions the Guest ABI adds on top of
// whatever the external compiler already emitted.
func addHelperFunctions(m *wasm.Module, insIdx uint32) {
	i32Void := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
	voidI32 := wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}

	resetIdx := m.AddFunction(i32Void, nil, []wasm.Instruction{
		{Op: wasm.OpLocalGet, Index: 0},
		{Op: wasm.OpGlobalSet, Index: insIdx},
	})
	m.AddExport(resetInstructionsName, wasm.ExtFunc, resetIdx)

	getIdx := m.AddFunction(voidI32, nil, []wasm.Instruction{
		{Op: wasm.OpGlobalGet, Index: insIdx},
	})
	m.AddExport(getInstructionsName, wasm.ExtFunc, getIdx)
}
