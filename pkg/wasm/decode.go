package wasm

import "bytes"

var magic = []byte{0x00, 0x61, 0x73, 0x6D}
var version = []byte{0x01, 0x00, 0x00, 0x00}

// Decode parses a WebAssembly binary module into a mutable Module. It
// returns a *ParseError (or *UnsupportedOpcodeError) if the bytes are
// malformed, truncated, or use an opcode outside the supported subset.
func Decode(data []byte) (*Module, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], magic) || !bytes.Equal(data[4:8], version) {
		return nil, newParseError(0, "missing or unsupported wasm header")
	}

	m := &Module{MemoryMinPages: 1}
	var funcTypeIdx []uint32 // type index per defined function, in order

	off := 8
	for off < len(data) {
		if off+1 > len(data) {
			return nil, newParseError(off, "truncated section header")
		}
		id := data[off]
		off++
		size, next, err := readULEB128(data, off)
		if err != nil {
			return nil, err
		}
		off = next
		if off+int(size) > len(data) {
			return nil, newParseError(off, "section size overruns module")
		}
		payload := data[off : off+int(size)]
		off += int(size)

		switch id {
		case secType:
			if err := decodeTypeSection(m, payload); err != nil {
				return nil, err
			}
		case secImport:
			if err := decodeImportSection(m, payload); err != nil {
				return nil, err
			}
		case secFunc:
			ft, err := decodeFuncSection(payload)
			if err != nil {
				return nil, err
			}
			funcTypeIdx = ft
		case secMemory:
			if err := decodeMemorySection(m, payload); err != nil {
				return nil, err
			}
		case secGlobal:
			if err := decodeGlobalSection(m, payload); err != nil {
				return nil, err
			}
		case secExport:
			if err := decodeExportSection(m, payload); err != nil {
				return nil, err
			}
		case secCode:
			if err := decodeCodeSection(m, payload, funcTypeIdx); err != nil {
				return nil, err
			}
		case secData:
			if err := decodeDataSection(m, payload); err != nil {
				return nil, err
			}
		default:
			// Unknown/unsupported section (e.g. custom, table, start):
			// skip it. A module that truly needs one would fail later,
			// at instantiation, with a clearer error than a parse
			// failure here would give.
		}
	}
	return m, nil
}

func decodeTypeSection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if off >= len(p) || p[off] != 0x60 {
			return newParseError(off, "expected func type tag 0x60")
		}
		off++
		var params, results []ValType
		var n uint32
		n, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		for j := uint32(0); j < n; j++ {
			if off >= len(p) {
				return newParseError(off, "truncated param type")
			}
			params = append(params, ValType(p[off]))
			off++
		}
		n, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		for j := uint32(0); j < n; j++ {
			if off >= len(p) {
				return newParseError(off, "truncated result type")
			}
			results = append(results, ValType(p[off]))
			off++
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func decodeImportSection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var modName, name string
		modName, off, err = readName(p, off)
		if err != nil {
			return err
		}
		name, off, err = readName(p, off)
		if err != nil {
			return err
		}
		if off >= len(p) {
			return newParseError(off, "truncated import kind")
		}
		kind := p[off]
		off++
		if kind != ExtFunc {
			return newParseError(off, "only function imports are supported")
		}
		var tidx uint32
		tidx, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		if int(tidx) >= len(m.Types) {
			return newParseError(off, "import type index out of range")
		}
		m.Imports = append(m.Imports, Import{Module: modName, Name: name, Type: m.Types[tidx]})
	}
	return nil
}

func decodeFuncSection(p []byte) ([]uint32, error) {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		var tidx uint32
		tidx, off, err = readULEB128(p, off)
		if err != nil {
			return nil, err
		}
		out = append(out, tidx)
	}
	return out, nil
}

func decodeMemorySection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if off >= len(p) {
		return newParseError(off, "truncated memory limits")
	}
	hasMax := p[off] != 0
	off++
	var minP, maxP uint32
	minP, off, err = readULEB128(p, off)
	if err != nil {
		return err
	}
	if hasMax {
		maxP, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
	}
	m.MemoryMinPages = minP
	m.MemoryMaxPages = maxP
	return nil
}

func decodeGlobalSection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if off+2 > len(p) {
			return newParseError(off, "truncated global header")
		}
		valType := ValType(p[off])
		if valType != ValI32 {
			return newParseError(off, "only i32 globals are supported")
		}
		off++
		mutable := p[off] != 0
		off++
		// init expr: i32.const <n> end
		if off >= len(p) || Op(p[off]) != OpI32Const {
			return newParseError(off, "only i32.const global initializers are supported")
		}
		off++
		var init int64
		init, off, err = readSLEB128(p, off)
		if err != nil {
			return err
		}
		if off >= len(p) || Op(p[off]) != OpEnd {
			return newParseError(off, "malformed global init expression")
		}
		off++
		m.Globals = append(m.Globals, &Global{Mutable: mutable, Init: int32(init)})
	}
	return nil
}

func decodeExportSection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var name string
		name, off, err = readName(p, off)
		if err != nil {
			return err
		}
		if off >= len(p) {
			return newParseError(off, "truncated export kind")
		}
		kind := p[off]
		off++
		var idx uint32
		idx, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, &Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func decodeCodeSection(m *Module, p []byte, typeIdx []uint32) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	if int(count) != len(typeIdx) {
		return newParseError(off, "code section entry count mismatches function section")
	}
	for i := uint32(0); i < count; i++ {
		var bodySize uint32
		bodySize, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		if off+int(bodySize) > len(p) {
			return newParseError(off, "function body overruns code section")
		}
		body := p[off : off+int(bodySize)]
		off += int(bodySize)

		fn, err := decodeFuncBody(body, m.Types[typeIdx[i]])
		if err != nil {
			return err
		}
		m.Funcs = append(m.Funcs, fn)
	}
	return nil
}

func decodeFuncBody(body []byte, ft FuncType) (*Function, error) {
	off := 0
	groupCount, off, err := readULEB128(body, off)
	if err != nil {
		return nil, err
	}
	var locals []ValType
	for i := uint32(0); i < groupCount; i++ {
		var n uint32
		n, off, err = readULEB128(body, off)
		if err != nil {
			return nil, err
		}
		if off >= len(body) {
			return nil, newParseError(off, "truncated local group")
		}
		vt := ValType(body[off])
		off++
		for j := uint32(0); j < n; j++ {
			locals = append(locals, vt)
		}
	}

	instrs, _, err := decodeInstructions(body, off, len(body)-1) // body ends with a trailing `end`
	if err != nil {
		return nil, err
	}
	return &Function{Type: ft, Locals: locals, Instructions: instrs}, nil
}

// decodeInstructions decodes instructions from data[off:end]. end is
// exclusive and should point just past the last instruction (callers
// exclude the function body's mandatory trailing `end`, which is not
// modeled as part of Instructions since it isn't a basic block the
// Meter Injector needs to touch).
func decodeInstructions(data []byte, off, end int) ([]Instruction, int, error) {
	var out []Instruction
	for off < end {
		opByte := data[off]
		op := Op(opByte)
		kind, ok := operandKinds[op]
		if !ok {
			return nil, 0, &UnsupportedOpcodeError{Offset: off, Opcode: op}
		}
		instrOff := off
		off++
		in := Instruction{Op: op}
		var err error
		switch kind {
		case operandNone:
		case operandBlockType:
			if off >= len(data) {
				return nil, 0, newParseError(instrOff, "truncated block type")
			}
			in.I32 = int32(data[off])
			off++
		case operandU32:
			in.Index, off, err = readULEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
		case operandU32x2:
			in.Align, off, err = readULEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
			in.Offset, off, err = readULEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
		case operandI32:
			var v int64
			v, off, err = readSLEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
			in.I32 = int32(v)
		case operandI64:
			in.I64, off, err = readSLEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
		case operandBrTable:
			var n uint32
			n, off, err = readULEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
			for i := uint32(0); i < n; i++ {
				var lbl uint32
				lbl, off, err = readULEB128(data, off)
				if err != nil {
					return nil, 0, err
				}
				in.Table = append(in.Table, lbl)
			}
			in.Default, off, err = readULEB128(data, off)
			if err != nil {
				return nil, 0, err
			}
		}
		out = append(out, in)
	}
	return out, off, nil
}

func decodeDataSection(m *Module, p []byte) error {
	count, off, err := readULEB128(p, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if off >= len(p) {
			return newParseError(off, "truncated data segment")
		}
		memIdx := p[off]
		off++
		if memIdx != 0 {
			return newParseError(off, "only memory index 0 is supported")
		}
		if off >= len(p) || Op(p[off]) != OpI32Const {
			return newParseError(off, "only i32.const data offsets are supported")
		}
		off++
		var offVal int64
		offVal, off, err = readSLEB128(p, off)
		if err != nil {
			return err
		}
		if off >= len(p) || Op(p[off]) != OpEnd {
			return newParseError(off, "malformed data offset expression")
		}
		off++
		var n uint32
		n, off, err = readULEB128(p, off)
		if err != nil {
			return err
		}
		if off+int(n) > len(p) {
			return newParseError(off, "data segment overruns section")
		}
		m.Data = append(m.Data, DataSegment{Offset: int32(offVal), Data: append([]byte(nil), p[off:off+int(n)]...)})
		off += int(n)
	}
	return nil
}

func readName(p []byte, off int) (string, int, error) {
	n, off, err := readULEB128(p, off)
	if err != nil {
		return "", 0, err
	}
	if off+int(n) > len(p) {
		return "", 0, newParseError(off, "name overruns section")
	}
	s := string(p[off : off+int(n)])
	return s, off + int(n), nil
}
