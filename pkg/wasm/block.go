package wasm

// splitBlocks computes the basic blocks of a flat instruction sequence.
//
// A new block begins: at instruction 0, immediately after any instruction
// that opens structured control (block/loop/if), and immediately after an
// `else`. A block ends (inclusive of the terminating instruction) at a
// `br`, `br_if`, `br_table`, `return`, `unreachable`, `else`, or `end`.
// This is the standard leader/terminator definition of a basic block,
// specialized to WebAssembly's structured control flow instead of
// arbitrary jump targets.
func splitBlocks(instrs []Instruction) []BasicBlock {
	if len(instrs) == 0 {
		return []BasicBlock{{Start: 0, End: 0}}
	}

	var blocks []BasicBlock
	start := 0
	for i, in := range instrs {
		if isTerminator(in.Op) {
			blocks = append(blocks, BasicBlock{Start: start, End: i + 1})
			start = i + 1
			continue
		}
		if isBlockOpen(in.Op) {
			// The block-opening instruction itself ends the current
			// block (it's a leader for what follows) and starts a new
			// one at the next instruction.
			blocks = append(blocks, BasicBlock{Start: start, End: i + 1})
			start = i + 1
		}
	}
	if start < len(instrs) {
		blocks = append(blocks, BasicBlock{Start: start, End: len(instrs)})
	}
	return blocks
}

func isTerminator(op Op) bool {
	switch op {
	case OpBr, OpBrIf, OpBrTable, OpReturn, OpUnreachable, OpElse, OpEnd:
		return true
	default:
		return false
	}
}
