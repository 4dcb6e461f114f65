package tick

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kristofer/sandvm/pkg/host"
)

// DebugTextRegionSize is the size of the debug-text scratch region (§3,
// §5): at most this many bytes are read per tick regardless of what
// get_text_size() reports.
const DebugTextRegionSize = 2048

// PanicRegionSize is the size of the panic-text scratch region (§3): 1023
// usable bytes reserved for a trailing NUL.
const PanicRegionSize = 1024

// ReadDebugText implements the Debug Sink's host-side read (§4.H):
// get_text_size() followed by reading exactly that many bytes, capped at
// DebugTextRegionSize with Truncated reporting the overflow (§5 "flagged
// if feasible").
func ReadDebugText(ctx context.Context, vm *host.VM) (text string, truncated bool, err error) {
	size, err := vm.GetTextSize(ctx)
	if err != nil {
		return "", false, err
	}

	readLen := size
	if readLen > DebugTextRegionSize {
		readLen = DebugTextRegionSize
		truncated = true
	}

	raw, ok := vm.Memory().Read(vm.Offsets().Text, readLen)
	if !ok {
		return "", false, &MemoryAccessError{Region: "debug text"}
	}
	return toValidUTF8(raw), truncated, nil
}

// toValidUTF8 decodes raw as UTF-8, replacing invalid byte sequences with
// the standard substitution character U+FFFD (§4.H).
func toValidUTF8(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}
