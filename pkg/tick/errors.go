package tick

import "fmt"

// BudgetExhaustedError reports that a tick consumed enough of its
// instruction budget that the trap is attributed to the meter rather
// than to any other engine-level cause (§4.F, §7).
type BudgetExhaustedError struct {
	Used, Budget uint32
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("tick: budget exhausted (used %d of %d)", e.Used, e.Budget)
}

// GuestFaultError reports that the guest invoked its own fault primitive,
// leaving a non-empty message in the panic buffer before trapping.
type GuestFaultError struct {
	Text string
}

func (e *GuestFaultError) Error() string {
	return "tick: guest fault: " + e.Text
}

// HostTrapError reports an engine-level trap not attributable to budget
// exhaustion or a guest-raised fault: the catch-all third case of §4.F.
type HostTrapError struct {
	Cause error
}

func (e *HostTrapError) Error() string {
	return "tick: host trap: " + e.Cause.Error()
}

func (e *HostTrapError) Unwrap() error { return e.Cause }

// MemoryAccessError reports that a scratch-region read or write fell
// outside the guest's linear memory — a host-side invariant violation
// (the regions are fixed offsets within the one required page) rather
// than a decode failure of payload contents.
type MemoryAccessError struct {
	Region string
}

func (e *MemoryAccessError) Error() string {
	return "tick: " + e.Region + " region access out of bounds"
}
