package wasm

// Op is a single WebAssembly instruction opcode. Values match the binary
// format exactly so a decoded module can be re-encoded byte-for-byte where
// it wasn't mutated.
type Op byte

// Supported opcodes. This is a deliberate subset of the WebAssembly
// instruction set: the one a scripting-language backend paired with this
// sandbox plausibly emits (control flow, locals/globals, i32/i64 linear
// memory access, and integer arithmetic). See SPEC_FULL.md §A.1.
const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoop        Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpBrTable     Op = 0x0E
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10
	OpCallIndir   Op = 0x11

	OpDrop   Op = 0x1A
	OpSelect Op = 0x1B

	OpLocalGet  Op = 0x20
	OpLocalSet  Op = 0x21
	OpLocalTee  Op = 0x22
	OpGlobalGet Op = 0x23
	OpGlobalSet Op = 0x24

	OpI32Load    Op = 0x28
	OpI64Load    Op = 0x29
	OpI32Load8U  Op = 0x2D
	OpI32Store   Op = 0x36
	OpI64Store   Op = 0x37
	OpI32Store8  Op = 0x3A
	OpMemorySize Op = 0x3F
	OpMemoryGrow Op = 0x40

	OpI32Const Op = 0x41
	OpI64Const Op = 0x42

	OpI32Eqz Op = 0x45
	OpI32Eq  Op = 0x46
	OpI32Ne  Op = 0x47
	OpI32LtS Op = 0x48
	OpI32LtU Op = 0x49
	OpI32GtS Op = 0x4A
	OpI32GtU Op = 0x4B
	OpI32LeS Op = 0x4C
	OpI32LeU Op = 0x4D
	OpI32GeS Op = 0x4E
	OpI32GeU Op = 0x4F

	OpI32Add  Op = 0x6A
	OpI32Sub  Op = 0x6B
	OpI32Mul  Op = 0x6C
	OpI32DivS Op = 0x6D
	OpI32DivU Op = 0x6E
	OpI32RemS Op = 0x6F
	OpI32RemU Op = 0x70
	OpI32And  Op = 0x71
	OpI32Or   Op = 0x72
	OpI32Xor  Op = 0x73
	OpI32Shl  Op = 0x74
	OpI32ShrS Op = 0x75
	OpI32ShrU Op = 0x76
)

// operandKind classifies how an instruction's immediate operand(s), if any,
// are encoded, which is all the decoder needs to know to find the next
// instruction boundary.
type operandKind int

const (
	operandNone      operandKind = iota // no immediate
	operandBlockType                    // one byte: void or a value type
	operandU32                          // one ULEB128
	operandU32x2                        // two ULEB128 (e.g. memarg: align, offset)
	operandI32                          // one SLEB128
	operandI64                          // one SLEB128 (64-bit range)
	operandBrTable                      // ULEB128 vector of labels + default label
)

var operandKinds = map[Op]operandKind{
	OpUnreachable: operandNone,
	OpNop:         operandNone,
	OpBlock:       operandBlockType,
	OpLoop:        operandBlockType,
	OpIf:          operandBlockType,
	OpElse:        operandNone,
	OpEnd:         operandNone,
	OpBr:          operandU32,
	OpBrIf:        operandU32,
	OpBrTable:     operandBrTable,
	OpReturn:      operandNone,
	OpCall:        operandU32,
	OpCallIndir:   operandU32x2,

	OpDrop:   operandNone,
	OpSelect: operandNone,

	OpLocalGet:  operandU32,
	OpLocalSet:  operandU32,
	OpLocalTee:  operandU32,
	OpGlobalGet: operandU32,
	OpGlobalSet: operandU32,

	OpI32Load:    operandU32x2,
	OpI64Load:    operandU32x2,
	OpI32Load8U:  operandU32x2,
	OpI32Store:   operandU32x2,
	OpI64Store:   operandU32x2,
	OpI32Store8:  operandU32x2,
	OpMemorySize: operandU32, // reserved byte, encoded as ULEB128(0)
	OpMemoryGrow: operandU32,

	OpI32Const: operandI32,
	OpI64Const: operandI64,

	OpI32Eqz: operandNone,
	OpI32Eq:  operandNone,
	OpI32Ne:  operandNone,
	OpI32LtS: operandNone,
	OpI32LtU: operandNone,
	OpI32GtS: operandNone,
	OpI32GtU: operandNone,
	OpI32LeS: operandNone,
	OpI32LeU: operandNone,
	OpI32GeS: operandNone,
	OpI32GeU: operandNone,

	OpI32Add:  operandNone,
	OpI32Sub:  operandNone,
	OpI32Mul:  operandNone,
	OpI32DivS: operandNone,
	OpI32DivU: operandNone,
	OpI32RemS: operandNone,
	OpI32RemU: operandNone,
	OpI32And:  operandNone,
	OpI32Or:   operandNone,
	OpI32Xor:  operandNone,
	OpI32Shl:  operandNone,
	OpI32ShrS: operandNone,
	OpI32ShrU: operandNone,
}

// isBlockOpen reports whether op begins a new structured-control region
// whose matching terminator is a later `end` (and, for OpIf, an optional
// intervening `else`).
func isBlockOpen(op Op) bool {
	return op == OpBlock || op == OpLoop || op == OpIf
}

// ValType is a WebAssembly value type byte.
type ValType byte

const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

// Section IDs, in module encoding order.
const (
	secType    = 1
	secImport  = 2
	secFunc    = 3
	secMemory  = 5
	secGlobal  = 6
	secExport  = 7
	secCode    = 10
	secData    = 11
)

// Export kinds.
const (
	ExtFunc   byte = 0x00
	ExtTable  byte = 0x01
	ExtMemory byte = 0x02
	ExtGlobal byte = 0x03
)
