package toolchain

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"
)

// ExecCompiler shells out to an external binary once per VM construction,
// feeding script source on stdin and reading the compiled module from
// stdout, exactly as spec.md §6 describes the compiler collaborator.
type ExecCompiler struct {
	// Path is the external compiler binary to invoke.
	Path string
	// Args are extra arguments passed before the source is piped in.
	Args []string
}

// Compile runs e.Path with e.Args, writing source to its stdin and
// reading the compiled module from its stdout. A non-zero exit surfaces
// the process's stderr verbatim as a *CompileFailedError.
func (e ExecCompiler) Compile(ctx context.Context, source string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Stdin = bytes.NewReader([]byte(source))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, &CompileFailedError{Stderr: stderr.String()}
		}
		return nil, errors.Wrapf(err, "running external compiler %q", e.Path)
	}

	return stdout.Bytes(), nil
}
