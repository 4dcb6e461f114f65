package toolchain

import "context"

// BytesCompiler is a trivial in-memory "compiler" that returns a
// pre-compiled module unchanged, ignoring source. It backs the CLI's
// `.wasm`-file path and every test that needs a guest module without
// shelling out to a real toolchain.
type BytesCompiler struct {
	Module []byte
}

// Compile returns c.Module, ignoring source entirely.
func (c BytesCompiler) Compile(ctx context.Context, source string) ([]byte, error) {
	return c.Module, nil
}
