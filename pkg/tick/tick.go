// Package tick implements the Tick Driver (§4.E): the seven-step,
// normatively-ordered orchestration of one complete guest invocation,
// built on top of the primitives pkg/host exposes.
package tick

import (
	"context"

	"github.com/kristofer/sandvm/pkg/host"
	"github.com/kristofer/sandvm/pkg/wire"
)

// Budget is the per-tick instruction quota (§5).
const Budget = 1_000_000

// BudgetSlack is the headroom below which a failed tick is attributed to
// budget exhaustion rather than any other cause (§4.F, §7). It must
// exceed the worst-case injected preamble plus trap path length; see
// pkg/meter.PreambleInstructionCount and SPEC_FULL.md §5.
const BudgetSlack = 10_000

// RunTick drives one complete invocation of vm's guest entry point:
// reset the counter, erase debug text, clear and populate the scratch
// regions, invoke export_run, and either decode the outputs or classify
// the failure. Order is normative (§4.E).
func RunTick(ctx context.Context, vm *host.VM, inputs []wire.Input) ([]wire.Output, error) {
	// Validate and frame the inputs before touching any instance state, so
	// an EncodeFailed here leaves the instance untouched (§8 boundaries).
	region, err := wire.EncodeInputRegion(inputs)
	if err != nil {
		return nil, err
	}

	if err := vm.ResetInstructions(ctx, Budget); err != nil {
		return nil, err
	}
	if err := vm.EraseText(ctx); err != nil {
		return nil, err
	}

	mem := vm.Memory()
	offsets := vm.Offsets()

	zero := make([]byte, wire.OutputRegionSize)
	if !mem.Write(offsets.Output, zero) {
		return nil, &MemoryAccessError{Region: "output"}
	}

	if !mem.Write(offsets.Input, region) {
		return nil, &MemoryAccessError{Region: "input"}
	}

	if runErr := vm.ExportRun(ctx); runErr != nil {
		return nil, classify(ctx, vm, runErr)
	}

	outRegion, ok := mem.Read(offsets.Output, wire.OutputRegionSize)
	if !ok {
		return nil, &MemoryAccessError{Region: "output"}
	}
	return wire.DecodeOutputRegion(outRegion)
}
