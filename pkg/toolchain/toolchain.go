// Package toolchain models the external compiler collaborator (§6 of
// SPEC_FULL.md): source-to-bytecode translation is explicitly out of
// scope for this runtime, so it is represented as a narrow interface
// rather than implemented here.
package toolchain

import "context"

// Compiler translates script source into a bytecode module conforming to
// the Guest ABI (§4.C), or fails with a CompileFailedError carrying the
// external toolchain's standard-error text verbatim.
type Compiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// CompileFailedError reports that the external compiler collaborator
// returned a non-success exit (§7 CompileFailed(stderr)).
type CompileFailedError struct {
	Stderr string
}

func (e *CompileFailedError) Error() string {
	return "toolchain: compile failed: " + e.Stderr
}
