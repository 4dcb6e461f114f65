package tick

import (
	"context"

	"github.com/kristofer/sandvm/pkg/host"
)

// classify implements the Fault Classifier (§4.F): given a tick that
// failed (runErr came back from export_run), decide whether it was
// BudgetExhausted, a GuestFault, or an opaque HostTrap. The three cases
// are mutually exclusive and collectively exhaustive, checked in that
// order.
func classify(ctx context.Context, vm *host.VM, runErr error) error {
	remaining, err := vm.GetInstructions(ctx)
	if err != nil {
		// Can't even read the counter back: fall back to the trap itself.
		return &HostTrapError{Cause: runErr}
	}
	used := Budget - remaining

	if used >= Budget-BudgetSlack {
		return &BudgetExhaustedError{Used: used, Budget: Budget}
	}

	text, readErr := readNULText(vm, vm.Offsets().Panic, PanicRegionSize)
	if readErr == nil && text != "" {
		return &GuestFaultError{Text: text}
	}

	return &HostTrapError{Cause: runErr}
}

// readNULText reads up to maxLen bytes starting at offset and returns
// the UTF-8 text up to (not including) the first NUL byte, matching the
// panic buffer's "NUL-terminated UTF-8 text" framing (§3).
func readNULText(vm *host.VM, offset, maxLen uint32) (string, error) {
	raw, ok := vm.Memory().Read(offset, maxLen)
	if !ok {
		return "", &MemoryAccessError{Region: "panic"}
	}
	end := 0
	for end < len(raw) && raw[end] != 0 {
		end++
	}
	return toValidUTF8(raw[:end]), nil
}
