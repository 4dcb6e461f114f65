package toolchain

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecCompilerReturnsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	c := ExecCompiler{Path: "/bin/cat"}
	out, err := c.Compile(context.Background(), "hello bytecode")
	require.NoError(t, err)
	require.Equal(t, "hello bytecode", string(out))
}

func TestExecCompilerSurfacesStderrOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	c := ExecCompiler{Path: "/bin/sh", Args: []string{"-c", "echo boom >&2; exit 1"}}
	_, err := c.Compile(context.Background(), "")
	require.Error(t, err)

	var failed *CompileFailedError
	require.ErrorAs(t, err, &failed)
	require.Contains(t, failed.Stderr, "boom")
}

func TestBytesCompilerIgnoresSource(t *testing.T) {
	c := BytesCompiler{Module: []byte{0x00, 0x61, 0x73, 0x6D}}
	out, err := c.Compile(context.Background(), "anything at all")
	require.NoError(t, err)
	require.Equal(t, c.Module, out)
}
