package wasm

import "fmt"

// ParseError reports a malformed or unsupported bytecode module. It
// carries the byte offset at which decoding failed so callers can locate
// the problem in a hex dump.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wasm: parse error at byte %d: %s", e.Offset, e.Reason)
}

func newParseError(offset int, reason string) error {
	return &ParseError{Offset: offset, Reason: reason}
}

// UnsupportedOpcodeError is returned when the decoder encounters a valid
// WebAssembly opcode outside the subset this sandbox supports (see
// SPEC_FULL.md §A.1). This is distinct from ParseError because the bytes
// are well-formed WebAssembly; they're simply outside this project's
// scope.
type UnsupportedOpcodeError struct {
	Offset int
	Opcode Op
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("wasm: unsupported opcode 0x%02x at byte %d", byte(e.Opcode), e.Offset)
}
