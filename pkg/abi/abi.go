// Package abi resolves the Guest ABI (§4.C of SPEC_FULL.md): the fixed
// set of named exports a compiled-and-metered guest module must provide
// before the Host VM will instantiate it. Resolution happens exactly
// once, at construction, and the result is a single value-type
// descriptor — matching spec.md §9's guidance that dynamic dispatch via
// exports "should encapsulate the ABI contract in a single value-type
// descriptor populated at construction."
package abi

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Required export names.
const (
	NameOutputBuffer = "SCRIPT_OUTPUT_BUFFER"
	NameInputBuffer  = "DATA_INPUT_BUFFER"
	NameTextBuffer   = "TEXT_BUFFER"
	NamePanicBuffer  = "PANIC_BUFFER"

	NameExportRun         = "export_run"
	NameResetInstructions = "reset_instructions"
	NameGetInstructions   = "get_instructions"
	NameGetTextSize       = "get_text_size"
	NameEraseText         = "erase_text"

	NameMemory = "memory"
)

// MissingSymbolError reports that a required Guest ABI export was absent
// at instantiation (§4.C, §7 MissingSymbol(name)).
type MissingSymbolError struct {
	Name string
}

func (e *MissingSymbolError) Error() string {
	return fmt.Sprintf("abi: guest module is missing required export %q", e.Name)
}

// moduleView is the subset of api.Module this package needs. Declaring it
// locally (rather than taking api.Module directly) keeps Resolve testable
// without a real wazero runtime instance.
type moduleView interface {
	ExportedFunction(name string) api.Function
	ExportedGlobal(name string) api.Global
	Memory() api.Memory
}

// Descriptor is the resolved Guest ABI: every handle the Host VM (§4.D)
// and Tick Driver (§4.E) need, cached so no further name lookups occur
// after construction.
type Descriptor struct {
	OutputBufferGlobal api.Global
	InputBufferGlobal  api.Global
	TextBufferGlobal   api.Global
	PanicBufferGlobal  api.Global

	ExportRun         api.Function
	ResetInstructions api.Function
	GetInstructions   api.Function
	GetTextSize       api.Function
	EraseText         api.Function

	Memory api.Memory
}

// Resolve looks up every required global and function export on mod by
// exact name, returning a *MissingSymbolError for the first absent one.
// The memory is taken from mod.Memory(), the module's own memory whether
// or not it is exported as "memory"; only a module with no memory at all
// yields a *MissingSymbolError for NameMemory.
func Resolve(mod moduleView) (*Descriptor, error) {
	var d Descriptor
	var err error

	if d.OutputBufferGlobal, err = resolveGlobal(mod, NameOutputBuffer); err != nil {
		return nil, err
	}
	if d.InputBufferGlobal, err = resolveGlobal(mod, NameInputBuffer); err != nil {
		return nil, err
	}
	if d.TextBufferGlobal, err = resolveGlobal(mod, NameTextBuffer); err != nil {
		return nil, err
	}
	if d.PanicBufferGlobal, err = resolveGlobal(mod, NamePanicBuffer); err != nil {
		return nil, err
	}

	if d.ExportRun, err = resolveFunction(mod, NameExportRun); err != nil {
		return nil, err
	}
	if d.ResetInstructions, err = resolveFunction(mod, NameResetInstructions); err != nil {
		return nil, err
	}
	if d.GetInstructions, err = resolveFunction(mod, NameGetInstructions); err != nil {
		return nil, err
	}
	if d.GetTextSize, err = resolveFunction(mod, NameGetTextSize); err != nil {
		return nil, err
	}
	if d.EraseText, err = resolveFunction(mod, NameEraseText); err != nil {
		return nil, err
	}

	d.Memory = mod.Memory()
	if d.Memory == nil {
		return nil, &MissingSymbolError{Name: NameMemory}
	}

	return &d, nil
}

func resolveGlobal(mod moduleView, name string) (api.Global, error) {
	g := mod.ExportedGlobal(name)
	if g == nil {
		return nil, &MissingSymbolError{Name: name}
	}
	return g, nil
}

func resolveFunction(mod moduleView, name string) (api.Function, error) {
	f := mod.ExportedFunction(name)
	if f == nil {
		return nil, &MissingSymbolError{Name: name}
	}
	return f, nil
}

// OutputOffset returns the guest-declared base offset of the output
// scratch region within linear memory.
func (d *Descriptor) OutputOffset() uint32 { return uint32(d.OutputBufferGlobal.Get()) }

// InputOffset returns the guest-declared base offset of the input
// scratch region within linear memory.
func (d *Descriptor) InputOffset() uint32 { return uint32(d.InputBufferGlobal.Get()) }

// TextOffset returns the guest-declared base offset of the debug-text
// region within linear memory.
func (d *Descriptor) TextOffset() uint32 { return uint32(d.TextBufferGlobal.Get()) }

// PanicOffset returns the guest-declared base offset of the panic-text
// region within linear memory.
func (d *Descriptor) PanicOffset() uint32 { return uint32(d.PanicBufferGlobal.Get()) }
