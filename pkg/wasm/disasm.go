package wasm

import (
	"fmt"
	"strings"
)

// Disassemble renders a human-readable listing of a module's functions,
// broken down by basic block, mirroring the teacher's own bytecode
// disassembler. Its main use in this project is verifying what the Meter
// Injector actually produced (see cmd/sandvm's `disasm` subcommand).
func Disassemble(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "globals: %d, exports: %d, funcs: %d\n", len(m.Globals), len(m.Exports), len(m.Funcs))
	for i, g := range m.Globals {
		fmt.Fprintf(&b, "  global[%d] mutable=%v init=%d\n", i, g.Mutable, g.Init)
	}
	for _, e := range m.Exports {
		fmt.Fprintf(&b, "  export %q kind=%d index=%d\n", e.Name, e.Kind, e.Index)
	}
	for fi, fn := range m.Funcs {
		fmt.Fprintf(&b, "func[%d] params=%v results=%v\n", m.FuncIndexOf(fi), fn.Type.Params, fn.Type.Results)
		for bi, blk := range fn.Blocks() {
			fmt.Fprintf(&b, "  block[%d] (%d..%d):\n", bi, blk.Start, blk.End)
			for ii := blk.Start; ii < blk.End; ii++ {
				fmt.Fprintf(&b, "    %4d: %s\n", ii, formatInstr(fn.Instructions[ii]))
			}
		}
	}
	return b.String()
}

func formatInstr(in Instruction) string {
	switch operandKinds[in.Op] {
	case operandU32:
		return fmt.Sprintf("0x%02x %d", byte(in.Op), in.Index)
	case operandI32:
		return fmt.Sprintf("0x%02x %d", byte(in.Op), in.I32)
	case operandI64:
		return fmt.Sprintf("0x%02x %d", byte(in.Op), in.I64)
	case operandU32x2:
		return fmt.Sprintf("0x%02x align=%d offset=%d", byte(in.Op), in.Align, in.Offset)
	case operandBlockType:
		return fmt.Sprintf("0x%02x blocktype=0x%02x", byte(in.Op), byte(in.I32))
	case operandBrTable:
		return fmt.Sprintf("0x%02x table=%v default=%d", byte(in.Op), in.Table, in.Default)
	default:
		return fmt.Sprintf("0x%02x", byte(in.Op))
	}
}
