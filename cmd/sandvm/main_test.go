package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/sandvm/pkg/toolchain"
)

func TestBuildCompilerWithoutCompilerFlagReadsModuleBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.wasm")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x61, 0x73, 0x6D}, 0o644))

	compiler, source, err := buildCompiler(path, "")
	require.NoError(t, err)
	require.Equal(t, "", source)

	bytesCompiler, ok := compiler.(toolchain.BytesCompiler)
	require.True(t, ok)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, bytesCompiler.Module)
}

func TestBuildCompilerWithCompilerFlagReadsSourceText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	require.NoError(t, os.WriteFile(path, []byte("tell me a story"), 0o644))

	compiler, source, err := buildCompiler(path, "/usr/bin/true")
	require.NoError(t, err)
	require.Equal(t, "tell me a story", source)

	_, ok := compiler.(toolchain.ExecCompiler)
	require.True(t, ok)
}

func TestBuildCompilerMissingFileFails(t *testing.T) {
	_, _, err := buildCompiler("/nonexistent/path/script.wasm", "")
	require.Error(t, err)
}
