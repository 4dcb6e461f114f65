package wasm

import (
	"reflect"
	"testing"
)

// buildSample constructs a small but representative module by hand
// (global, a function with locals/control-flow/memory ops, an export,
// and a data segment) to exercise every section the encoder/decoder
// pair supports except the import section.
func buildSample() *Module {
	m := New()
	g := m.AddGlobal(true, 7)

	body := []Instruction{
		{Op: OpI32Const, I32: 10},
		{Op: OpLocalSet, Index: 0},
		{Op: OpLocalGet, Index: 0},
		{Op: OpGlobalGet, Index: g},
		{Op: OpI32Add},
		{Op: OpI32Const, I32: 100},
		{Op: OpI32Store, Align: 2, Offset: 0},
		{Op: OpI32Const, I32: 0},
		{Op: OpIf, I32: 0x40},
		{Op: OpUnreachable},
		{Op: OpElse},
		{Op: OpNop},
		{Op: OpEnd},
	}
	ft := FuncType{Params: []ValType{ValI32}, Results: nil}
	idx := m.AddFunction(ft, []ValType{ValI32, ValI32}, body)
	m.AddExport("run", ExtFunc, idx)
	m.AddExport("counter", ExtGlobal, g)
	m.Data = append(m.Data, DataSegment{Offset: 0, Data: []byte("hi")})
	return m
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := buildSample()
	bytes1 := original.Encode()

	decoded, err := Decode(bytes1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	bytes2 := decoded.Encode()

	if !reflect.DeepEqual(bytes1, bytes2) {
		t.Fatalf("re-encoding a decoded module changed the bytes:\n%x\nvs\n%x", bytes1, bytes2)
	}

	if len(decoded.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(decoded.Funcs))
	}
	fn := decoded.Funcs[0]
	if len(fn.Instructions) != len(original.Funcs[0].Instructions) {
		t.Fatalf("instruction count mismatch: got %d, want %d", len(fn.Instructions), len(original.Funcs[0].Instructions))
	}
	if exp := decoded.FindExport("run"); exp == nil || exp.Kind != ExtFunc {
		t.Fatalf("export %q missing or wrong kind", "run")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("not wasm"))
	if err == nil {
		t.Fatal("expected an error for invalid magic")
	}
}

func TestDecodeRejectsUnsupportedOpcode(t *testing.T) {
	m := New()
	idx := m.AddFunction(FuncType{}, nil, []Instruction{{Op: Op(0xFC)}}) // misc-prefixed ops, unsupported
	_ = idx
	data := m.Encode()

	_, err := Decode(data)
	if err == nil {
		t.Fatal("expected an unsupported-opcode error")
	}
	if _, ok := err.(*UnsupportedOpcodeError); !ok {
		t.Fatalf("expected *UnsupportedOpcodeError, got %T: %v", err, err)
	}
}
