package wasm

// Encode re-serializes a Module back to a WebAssembly binary. It is the
// inverse of Decode and is what the Host VM calls once the Meter Injector
// has finished rewriting a module's functions and adding its new global
// and exports.
func (m *Module) Encode() []byte {
	out := append([]byte{}, magic...)
	out = append(out, version...)

	if len(m.Types) > 0 {
		out = encodeSection(out, secType, m.encodeTypeSection())
	}
	if len(m.Imports) > 0 {
		out = encodeSection(out, secImport, m.encodeImportSection())
	}
	if len(m.Funcs) > 0 {
		out = encodeSection(out, secFunc, m.encodeFuncSection())
	}
	out = encodeSection(out, secMemory, m.encodeMemorySection())
	if len(m.Globals) > 0 {
		out = encodeSection(out, secGlobal, m.encodeGlobalSection())
	}
	if len(m.Exports) > 0 {
		out = encodeSection(out, secExport, m.encodeExportSection())
	}
	if len(m.Funcs) > 0 {
		out = encodeSection(out, secCode, m.encodeCodeSection())
	}
	if len(m.Data) > 0 {
		out = encodeSection(out, secData, m.encodeDataSection())
	}
	return out
}

func encodeSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendULEB128(out, uint32(len(payload)))
	return append(out, payload...)
}

func encodeName(buf []byte, s string) []byte {
	buf = appendULEB128(buf, uint32(len(s)))
	return append(buf, s...)
}

func (m *Module) encodeTypeSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Types)))
	for _, t := range m.Types {
		buf = append(buf, 0x60)
		buf = appendULEB128(buf, uint32(len(t.Params)))
		for _, p := range t.Params {
			buf = append(buf, byte(p))
		}
		buf = appendULEB128(buf, uint32(len(t.Results)))
		for _, r := range t.Results {
			buf = append(buf, byte(r))
		}
	}
	return buf
}

func (m *Module) encodeImportSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		buf = encodeName(buf, imp.Module)
		buf = encodeName(buf, imp.Name)
		buf = append(buf, ExtFunc)
		buf = appendULEB128(buf, m.internTypeIndex(imp.Type))
	}
	return buf
}

func (m *Module) encodeFuncSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		buf = appendULEB128(buf, m.internTypeIndex(fn.Type))
	}
	return buf
}

func (m *Module) encodeMemorySection() []byte {
	var buf []byte
	buf = appendULEB128(buf, 1)
	if m.MemoryMaxPages > 0 {
		buf = append(buf, 0x01)
		buf = appendULEB128(buf, m.MemoryMinPages)
		buf = appendULEB128(buf, m.MemoryMaxPages)
	} else {
		buf = append(buf, 0x00)
		buf = appendULEB128(buf, m.MemoryMinPages)
	}
	return buf
}

func (m *Module) encodeGlobalSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		buf = append(buf, byte(ValI32))
		if g.Mutable {
			buf = append(buf, 0x01)
		} else {
			buf = append(buf, 0x00)
		}
		buf = append(buf, byte(OpI32Const))
		buf = appendSLEB128(buf, int64(g.Init))
		buf = append(buf, byte(OpEnd))
	}
	return buf
}

func (m *Module) encodeExportSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Exports)))
	for _, e := range m.Exports {
		buf = encodeName(buf, e.Name)
		buf = append(buf, e.Kind)
		buf = appendULEB128(buf, e.Index)
	}
	return buf
}

func (m *Module) encodeCodeSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		body := encodeFuncBody(fn)
		buf = appendULEB128(buf, uint32(len(body)))
		buf = append(buf, body...)
	}
	return buf
}

func encodeFuncBody(fn *Function) []byte {
	var buf []byte

	// Local declarations, grouped into runs of identical type (the
	// format the WebAssembly binary expects; it needn't match how the
	// producer grouped them originally).
	groups := groupLocals(fn.Locals)
	buf = appendULEB128(buf, uint32(len(groups)))
	for _, g := range groups {
		buf = appendULEB128(buf, g.count)
		buf = append(buf, byte(g.typ))
	}

	buf = encodeInstructions(buf, fn.Instructions)
	buf = append(buf, byte(OpEnd))
	return buf
}

type localGroup struct {
	count uint32
	typ   ValType
}

func groupLocals(locals []ValType) []localGroup {
	var groups []localGroup
	for _, t := range locals {
		if len(groups) > 0 && groups[len(groups)-1].typ == t {
			groups[len(groups)-1].count++
			continue
		}
		groups = append(groups, localGroup{count: 1, typ: t})
	}
	return groups
}

func encodeInstructions(buf []byte, instrs []Instruction) []byte {
	for _, in := range instrs {
		buf = append(buf, byte(in.Op))
		switch operandKinds[in.Op] {
		case operandNone:
		case operandBlockType:
			buf = append(buf, byte(in.I32))
		case operandU32:
			buf = appendULEB128(buf, in.Index)
		case operandU32x2:
			buf = appendULEB128(buf, in.Align)
			buf = appendULEB128(buf, in.Offset)
		case operandI32:
			buf = appendSLEB128(buf, int64(in.I32))
		case operandI64:
			buf = appendSLEB128(buf, in.I64)
		case operandBrTable:
			buf = appendULEB128(buf, uint32(len(in.Table)))
			for _, lbl := range in.Table {
				buf = appendULEB128(buf, lbl)
			}
			buf = appendULEB128(buf, in.Default)
		}
	}
	return buf
}

func (m *Module) encodeDataSection() []byte {
	var buf []byte
	buf = appendULEB128(buf, uint32(len(m.Data)))
	for _, d := range m.Data {
		buf = append(buf, 0x00)
		buf = append(buf, byte(OpI32Const))
		buf = appendSLEB128(buf, int64(d.Offset))
		buf = append(buf, byte(OpEnd))
		buf = appendULEB128(buf, uint32(len(d.Data)))
		buf = append(buf, d.Data...)
	}
	return buf
}
