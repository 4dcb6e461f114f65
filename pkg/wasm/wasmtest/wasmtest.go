// Package wasmtest builds minimal guest modules directly through the
// Module Loader's builder API, standing in for the external compiler
// (§6 of spec.md) in tests. It is test-only infrastructure, not a second
// compiler: every fixture here hand-assembles the exact instructions a
// real compiled guest would emit for a given tiny scenario.
package wasmtest

import (
	"github.com/kristofer/sandvm/pkg/wasm"
	"github.com/kristofer/sandvm/pkg/wire"
)

// Fixed scratch-region layout used by every fixture in this package,
// packed into the single required memory page (64 KiB, far more than the
// 2048+2048+2048+1024 bytes the four regions need).
const (
	InputOffset  = 0
	OutputOffset = 2048
	TextOffset   = 4096
	PanicOffset  = 6144
	ScratchEnd   = 7168
)

// NewGuest returns a module satisfying the Guest ABI (§4.C) except for
// the two metering helpers, which the Meter Injector adds. runBody is the
// instruction sequence for export_run.
func NewGuest(runBody []wasm.Instruction) *wasm.Module {
	m := wasm.New()

	outG := m.AddGlobal(false, OutputOffset)
	inG := m.AddGlobal(false, InputOffset)
	textG := m.AddGlobal(false, TextOffset)
	panicG := m.AddGlobal(false, PanicOffset)
	// textSize is an internal bookkeeping global, not part of the ABI;
	// get_text_size()/erase_text() read and reset it.
	textSizeG := m.AddGlobal(true, 0)

	voidVoid := wasm.FuncType{}
	voidI32 := wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}

	runIdx := m.AddFunction(voidVoid, nil, runBody)

	getTextSizeIdx := m.AddFunction(voidI32, nil, []wasm.Instruction{
		{Op: wasm.OpGlobalGet, Index: textSizeG},
	})

	eraseTextIdx := m.AddFunction(voidVoid, nil, []wasm.Instruction{
		{Op: wasm.OpI32Const, I32: 0},
		{Op: wasm.OpGlobalSet, Index: textSizeG},
	})

	m.AddExport("SCRIPT_OUTPUT_BUFFER", wasm.ExtGlobal, outG)
	m.AddExport("DATA_INPUT_BUFFER", wasm.ExtGlobal, inG)
	m.AddExport("TEXT_BUFFER", wasm.ExtGlobal, textG)
	m.AddExport("PANIC_BUFFER", wasm.ExtGlobal, panicG)
	m.AddExport("export_run", wasm.ExtFunc, runIdx)
	m.AddExport("get_text_size", wasm.ExtFunc, getTextSizeIdx)
	m.AddExport("erase_text", wasm.ExtFunc, eraseTextIdx)
	m.AddExport("memory", wasm.ExtMemory, 0)

	return m
}

// storeBytes returns the instructions that write data at dst using
// unrolled i32.store8 instructions — fine for the short fixed strings
// these fixtures need, and it keeps the fixture free of loop/branch
// instructions that would complicate reading its basic-block structure
// in tests.
func storeBytes(dst int32, data []byte) []wasm.Instruction {
	var out []wasm.Instruction
	for i, b := range data {
		out = append(out,
			wasm.Instruction{Op: wasm.OpI32Const, I32: dst + int32(i)},
			wasm.Instruction{Op: wasm.OpI32Const, I32: int32(b)},
			wasm.Instruction{Op: wasm.OpI32Store8},
		)
	}
	return out
}

// EmptyTick returns a guest whose export_run does nothing: the canonical
// scenario 1 of spec.md §8.
func EmptyTick() *wasm.Module {
	return NewGuest(nil)
}

// writeOutputRegion returns instructions that unconditionally overwrite
// the output region with the wire encoding of outputs, standing in for a
// guest runtime that serializes its emitted actions on the way out of
// export_run.
func writeOutputRegion(outputs []wire.Output) []wasm.Instruction {
	region, err := wire.EncodeOutputRegion(outputs)
	if err != nil {
		panic(err) // fixture construction error, not a runtime path
	}
	return storeBytes(OutputOffset, region)
}

// SingleAction returns a guest that emits exactly one output action
// (scenario 2).
func SingleAction(tag byte) *wasm.Module {
	return NewGuest(writeOutputRegion([]wire.Output{{Tag: tag}}))
}

// ThreeActions returns a guest that emits three output actions in a fixed
// order (scenario 3).
func ThreeActions(a, b, c byte) *wasm.Module {
	return NewGuest(writeOutputRegion([]wire.Output{{Tag: a}, {Tag: b}, {Tag: c}}))
}

// InfiniteLoop returns a guest whose export_run never returns under its
// own power: a single-block infinite loop that the Meter Injector's
// preamble will eventually trap (scenario 4).
func InfiniteLoop() *wasm.Module {
	body := []wasm.Instruction{
		{Op: wasm.OpLoop, I32: int32(blockTypeVoid)},
		{Op: wasm.OpBr, Index: 0},
		{Op: wasm.OpEnd},
	}
	return NewGuest(body)
}

const blockTypeVoid = 0x40

// GuestFault returns a guest that writes msg (NUL-terminated) into the
// panic buffer and then traps via unreachable, modeling a guest runtime's
// own fault primitive (scenario 5).
func GuestFault(msg string) *wasm.Module {
	data := append([]byte(msg), 0)
	body := append(storeBytes(PanicOffset, data), wasm.Instruction{Op: wasm.OpUnreachable})
	return NewGuest(body)
}

// DebugEcho returns a guest that writes text into the debug buffer,
// updates the text-size bookkeeping global, and emits no actions
// (scenario 6).
func DebugEcho(text string) *wasm.Module {
	return newDebugEchoGuest(text)
}

// newDebugEchoGuest duplicates NewGuest's wiring because, unlike the other
// fixtures, this one needs the textSize global index to build export_run's
// own body (the chicken-and-egg that NewGuest's signature — body before
// globals exist — doesn't accommodate).
func newDebugEchoGuest(text string) *wasm.Module {
	m := wasm.New()

	outG := m.AddGlobal(false, OutputOffset)
	inG := m.AddGlobal(false, InputOffset)
	textG := m.AddGlobal(false, TextOffset)
	panicG := m.AddGlobal(false, PanicOffset)
	textSizeG := m.AddGlobal(true, 0)

	voidVoid := wasm.FuncType{}
	voidI32 := wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}

	runBody := append(storeBytes(TextOffset, []byte(text)),
		wasm.Instruction{Op: wasm.OpI32Const, I32: int32(len(text))},
		wasm.Instruction{Op: wasm.OpGlobalSet, Index: textSizeG},
	)
	runIdx := m.AddFunction(voidVoid, nil, runBody)

	getTextSizeIdx := m.AddFunction(voidI32, nil, []wasm.Instruction{
		{Op: wasm.OpGlobalGet, Index: textSizeG},
	})
	eraseTextIdx := m.AddFunction(voidVoid, nil, []wasm.Instruction{
		{Op: wasm.OpI32Const, I32: 0},
		{Op: wasm.OpGlobalSet, Index: textSizeG},
	})

	m.AddExport("SCRIPT_OUTPUT_BUFFER", wasm.ExtGlobal, outG)
	m.AddExport("DATA_INPUT_BUFFER", wasm.ExtGlobal, inG)
	m.AddExport("TEXT_BUFFER", wasm.ExtGlobal, textG)
	m.AddExport("PANIC_BUFFER", wasm.ExtGlobal, panicG)
	m.AddExport("export_run", wasm.ExtFunc, runIdx)
	m.AddExport("get_text_size", wasm.ExtFunc, getTextSizeIdx)
	m.AddExport("erase_text", wasm.ExtFunc, eraseTextIdx)
	m.AddExport("memory", wasm.ExtMemory, 0)

	return m
}
