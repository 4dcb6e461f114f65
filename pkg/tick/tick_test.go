package tick_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/sandvm/pkg/host"
	"github.com/kristofer/sandvm/pkg/tick"
	"github.com/kristofer/sandvm/pkg/toolchain"
	"github.com/kristofer/sandvm/pkg/wasm"
	"github.com/kristofer/sandvm/pkg/wasm/wasmtest"
	"github.com/kristofer/sandvm/pkg/wire"
)

func newTestVM(t *testing.T, guest *wasm.Module) *host.VM {
	t.Helper()
	ctx := context.Background()
	vm, err := host.New(ctx, "", toolchain.BytesCompiler{Module: guest.Encode()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close(ctx) })
	return vm
}

// scenario 1: empty tick.
func TestEmptyTick(t *testing.T) {
	vm := newTestVM(t, wasmtest.EmptyTick())
	ctx := context.Background()

	outputs, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)
	require.Empty(t, outputs)

	text, truncated, err := tick.ReadDebugText(ctx, vm)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Equal(t, "", text)

	remaining, err := vm.GetInstructions(ctx)
	require.NoError(t, err)
	require.Less(t, remaining, uint32(tick.Budget), "the metered erase_text and get_text_size calls must consume some budget")
}

// scenario 2: single action.
func TestSingleAction(t *testing.T) {
	vm := newTestVM(t, wasmtest.SingleAction(wire.TagX))
	ctx := context.Background()

	outputs, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)
	require.Equal(t, []wire.Output{wire.OutputX}, outputs)
}

// scenario 3: three actions in a fixed order.
func TestThreeActionsPreserveOrder(t *testing.T) {
	vm := newTestVM(t, wasmtest.ThreeActions(wire.TagY, wire.TagX, wire.TagZ))
	ctx := context.Background()

	outputs, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)
	require.Equal(t, []wire.Output{wire.OutputY, wire.OutputX, wire.OutputZ}, outputs)
}

// scenario 4: budget exhaustion.
func TestInfiniteLoopExhaustsBudget(t *testing.T) {
	vm := newTestVM(t, wasmtest.InfiniteLoop())
	ctx := context.Background()

	_, err := tick.RunTick(ctx, vm, nil)
	require.Error(t, err)

	var exhausted *tick.BudgetExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.LessOrEqual(t, exhausted.Budget-exhausted.Used, uint32(tick.BudgetSlack))
}

// scenario 5: guest fault.
func TestGuestFaultReportsMessage(t *testing.T) {
	vm := newTestVM(t, wasmtest.GuestFault("boom at lib.rs:10:5"))
	ctx := context.Background()

	_, err := tick.RunTick(ctx, vm, nil)
	require.Error(t, err)

	var guestFault *tick.GuestFaultError
	require.ErrorAs(t, err, &guestFault)
	require.Contains(t, guestFault.Text, "boom")

	remaining, getErr := vm.GetInstructions(ctx)
	require.NoError(t, getErr)
	require.Less(t, tick.Budget-remaining, uint32(tick.BudgetSlack))
}

// scenario 6: debug echo.
func TestDebugEcho(t *testing.T) {
	vm := newTestVM(t, wasmtest.DebugEcho("hello\n"))
	ctx := context.Background()

	outputs, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)
	require.Empty(t, outputs)

	text, truncated, err := tick.ReadDebugText(ctx, vm)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Equal(t, "hello\n", text)
}

// Determinism (§8): identical inputs on the same instance starting from
// fresh construction produce reproducible outputs across repeated ticks.
func TestRepeatedTicksAreDeterministic(t *testing.T) {
	vm := newTestVM(t, wasmtest.ThreeActions(wire.TagX, wire.TagY, wire.TagZ))
	ctx := context.Background()

	first, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)
	second, err := tick.RunTick(ctx, vm, nil)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestOversizedInputsFailWithEncodeFailed(t *testing.T) {
	vm := newTestVM(t, wasmtest.EmptyTick())
	ctx := context.Background()

	huge := make([]wire.Input, 0, 1024)
	for i := 0; i < 1024; i++ {
		huge = append(huge, wire.InputA(uint32(i)))
	}

	_, err := tick.RunTick(ctx, vm, huge)
	require.Error(t, err)

	var encodeFailed *wire.EncodeFailedError
	require.ErrorAs(t, err, &encodeFailed)
}
