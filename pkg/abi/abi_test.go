package abi

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

// fakeGlobal and fakeFunction implement just enough of api.Global/
// api.Function for Resolve's own logic (name lookup, not invocation).

type fakeGlobal struct{ v uint64 }

func (f fakeGlobal) Get() uint64    { return f.v }
func (f fakeGlobal) Type() api.ValueType { return api.ValueTypeI32 }
func (f fakeGlobal) String() string { return "fakeGlobal" }

type fakeFunction struct{}

func (fakeFunction) Definition() api.FunctionDefinition { return nil }
func (fakeFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return nil, nil
}

type fakeModule struct {
	globals   map[string]api.Global
	functions map[string]api.Function
	memory    api.Memory
}

func (m *fakeModule) ExportedGlobal(name string) api.Global     { return m.globals[name] }
func (m *fakeModule) ExportedFunction(name string) api.Function { return m.functions[name] }
func (m *fakeModule) Memory() api.Memory                        { return m.memory }

func fullModule() *fakeModule {
	return &fakeModule{
		globals: map[string]api.Global{
			NameOutputBuffer: fakeGlobal{v: 2048},
			NameInputBuffer:  fakeGlobal{v: 0},
			NameTextBuffer:   fakeGlobal{v: 4096},
			NamePanicBuffer:  fakeGlobal{v: 6144},
		},
		functions: map[string]api.Function{
			NameExportRun:         fakeFunction{},
			NameResetInstructions: fakeFunction{},
			NameGetInstructions:   fakeFunction{},
			NameGetTextSize:       fakeFunction{},
			NameEraseText:         fakeFunction{},
		},
		memory: nil, // overwritten per-test; nil memory is itself tested below
	}
}

type fakeMemory struct{ api.Memory }

func TestResolveSucceedsWithAllSymbols(t *testing.T) {
	m := fullModule()
	m.memory = fakeMemory{}

	d, err := Resolve(m)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.OutputOffset() != 2048 {
		t.Errorf("OutputOffset() = %d, want 2048", d.OutputOffset())
	}
	if d.TextOffset() != 4096 {
		t.Errorf("TextOffset() = %d, want 4096", d.TextOffset())
	}
}

func TestResolveReportsMissingGlobal(t *testing.T) {
	m := fullModule()
	m.memory = fakeMemory{}
	delete(m.globals, NamePanicBuffer)

	_, err := Resolve(m)
	missing, ok := err.(*MissingSymbolError)
	if !ok {
		t.Fatalf("expected *MissingSymbolError, got %T: %v", err, err)
	}
	if missing.Name != NamePanicBuffer {
		t.Errorf("missing symbol = %q, want %q", missing.Name, NamePanicBuffer)
	}
}

func TestResolveReportsMissingFunction(t *testing.T) {
	m := fullModule()
	m.memory = fakeMemory{}
	delete(m.functions, NameEraseText)

	_, err := Resolve(m)
	missing, ok := err.(*MissingSymbolError)
	if !ok {
		t.Fatalf("expected *MissingSymbolError, got %T: %v", err, err)
	}
	if missing.Name != NameEraseText {
		t.Errorf("missing symbol = %q, want %q", missing.Name, NameEraseText)
	}
}

func TestResolveReportsMissingMemory(t *testing.T) {
	m := fullModule()
	// m.memory left nil

	_, err := Resolve(m)
	missing, ok := err.(*MissingSymbolError)
	if !ok {
		t.Fatalf("expected *MissingSymbolError, got %T: %v", err, err)
	}
	if missing.Name != NameMemory {
		t.Errorf("missing symbol = %q, want %q", missing.Name, NameMemory)
	}
}
