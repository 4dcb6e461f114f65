// Package host implements the Host VM (§4.D of SPEC_FULL.md): compiling a
// script once, injecting the instruction-budget metering transform,
// instantiating the rewritten module, and resolving the Guest ABI.
//
// Host loop architecture:
//
//	source --(toolchain.Compiler)--> raw module
//	      --(wasm.Decode)----------> *wasm.Module
//	      --(meter.Inject)---------> metered *wasm.Module
//	      --(wasm.Encode + wazero)-> instantiated guest
//	      --(abi.Resolve)----------> cached ABI handles
//
// Everything above happens exactly once, inside New. The returned *VM
// then exposes the small set of primitive operations (reset the
// counter, erase debug text, invoke the entry point, read the counter
// back) that the Tick Driver composes into the seven-step run_tick
// sequence; New's caller never looks up a symbol by name again.
//
// A *VM is single-threaded: it wraps one wazero module instance and one
// mutable store, and spec.md §5 requires at most one in-flight tick per
// instance. Running multiple scripts concurrently means constructing one
// *VM per goroutine, not sharing one.
package host

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/kristofer/sandvm/pkg/abi"
	"github.com/kristofer/sandvm/pkg/meter"
	"github.com/kristofer/sandvm/pkg/toolchain"
	"github.com/kristofer/sandvm/pkg/wasm"
)

// Offsets is the resolved scratch-region layout (§3) of a guest instance.
type Offsets struct {
	Input  uint32
	Output uint32
	Text   uint32
	Panic  uint32
}

// VM is a constructed, instantiated guest instance ready to be ticked.
type VM struct {
	runtime wazero.Runtime
	module  api.Module
	abi     *abi.Descriptor
	log     *zap.Logger
}

// Option configures VM construction.
type Option func(*config)

type config struct {
	logger *zap.Logger
}

// WithLogger attaches a structured logger. Construction defaults to
// zap.NewNop() so library use without explicit logging stays silent.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New compiles source with compiler, injects metering, instantiates the
// rewritten module, and resolves the Guest ABI (§4.C). All name
// resolution happens here; subsequent ticks are O(1) in symbol lookup.
func New(ctx context.Context, source string, compiler toolchain.Compiler, opts ...Option) (*VM, error) {
	cfg := config{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}

	raw, err := compiler.Compile(ctx, source)
	if err != nil {
		return nil, errors.Wrap(err, "compiling guest source")
	}

	mod, err := wasm.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decoding compiled module")
	}
	mod, err = meter.Inject(mod)
	if err != nil {
		return nil, errors.Wrap(err, "injecting instruction metering")
	}
	rewritten := mod.Encode()

	rt := wazero.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, rewritten)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(err, "compiling rewritten module")
	}

	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(err, "instantiating guest module")
	}

	descriptor, err := abi.Resolve(instance)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	cfg.logger.Debug("guest instantiated",
		zap.Uint32("input_offset", descriptor.InputOffset()),
		zap.Uint32("output_offset", descriptor.OutputOffset()),
		zap.Uint32("text_offset", descriptor.TextOffset()),
		zap.Uint32("panic_offset", descriptor.PanicOffset()),
	)

	return &VM{runtime: rt, module: instance, abi: descriptor, log: cfg.logger}, nil
}

// Close tears down the wazero runtime and its instance.
func (vm *VM) Close(ctx context.Context) error {
	return vm.runtime.Close(ctx)
}

// Memory returns the guest's linear memory handle, owned by the VM for
// its whole lifetime.
func (vm *VM) Memory() api.Memory { return vm.abi.Memory }

// Offsets returns the scratch-region layout resolved at construction.
func (vm *VM) Offsets() Offsets {
	return Offsets{
		Input:  vm.abi.InputOffset(),
		Output: vm.abi.OutputOffset(),
		Text:   vm.abi.TextOffset(),
		Panic:  vm.abi.PanicOffset(),
	}
}

// Logger returns the logger this VM was constructed with.
func (vm *VM) Logger() *zap.Logger { return vm.log }

// ResetInstructions calls reset_instructions(amount).
func (vm *VM) ResetInstructions(ctx context.Context, amount uint32) error {
	_, err := vm.abi.ResetInstructions.Call(ctx, uint64(amount))
	return errors.Wrap(err, "reset_instructions")
}

// GetInstructions calls get_instructions() and returns its result.
func (vm *VM) GetInstructions(ctx context.Context) (uint32, error) {
	res, err := vm.abi.GetInstructions.Call(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get_instructions")
	}
	return uint32(res[0]), nil
}

// EraseText calls erase_text().
func (vm *VM) EraseText(ctx context.Context) error {
	_, err := vm.abi.EraseText.Call(ctx)
	return errors.Wrap(err, "erase_text")
}

// GetTextSize calls get_text_size() and returns its result.
func (vm *VM) GetTextSize(ctx context.Context) (uint32, error) {
	res, err := vm.abi.GetTextSize.Call(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get_text_size")
	}
	return uint32(res[0]), nil
}

// ExportRun invokes the guest entry point. A non-nil error here is a
// trap: the caller (the Tick Driver) must hand it to the Fault Classifier
// rather than treat it as an ordinary Go error.
func (vm *VM) ExportRun(ctx context.Context) error {
	_, err := vm.abi.ExportRun.Call(ctx)
	return err
}
