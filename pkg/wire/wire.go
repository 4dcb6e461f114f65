// Package wire implements the Wire Codec (§4.G of spec.md): the
// length-prefixed binary framing used to marshal inputs into the guest and
// demarshal outputs back, within the fixed-size scratch buffers of §3.
//
// This package is the trust boundary the rest of the system relies on:
// every decode rejects a length that would read past the end of the
// caller-supplied region rather than trusting the guest.
package wire

import "github.com/pkg/errors"

// Input tags (V_in variants).
const (
	TagA byte = 0 // unsigned-32
	TagB byte = 1 // signed-32
)

// Output tags (V_out variants). All three are nullary: the tag is the
// entire encoding of a value.
const (
	TagX byte = 0
	TagY byte = 1
	TagZ byte = 2
)

// InputLengthPrefixSize and OutputLengthPrefixSize are the framing widths
// fixed by §3: 8 bytes for input (the extra width is "historical"; the
// upper bytes are always zero), 4 bytes for output (sized for the 2048 B
// region).
const (
	InputLengthPrefixSize  = 8
	OutputLengthPrefixSize = 4

	InputRegionSize  = 2048
	OutputRegionSize = 2048

	MaxInputPayload  = InputRegionSize - InputLengthPrefixSize   // 2040
	MaxOutputPayload = OutputRegionSize - OutputLengthPrefixSize // 2044
)

// outputTagSize is the width of a single V_out element: a nullary enum
// variant encodes as its 4-byte little-endian discriminant alone, with no
// body. This matches the original's bincode framing (enum discriminants are
// u32) and is what makes the pinned single-action scenario's output region
// read [04,00,00,00, <tag-for-X>, …] — the region's own 4-byte length
// prefix is 4 because the one element it frames is itself 4 bytes wide.
const outputTagSize = 4

// DecodeFailedError is returned when a length prefix or payload fails
// validation: the one error kind the decoders produce, per §7.
type DecodeFailedError struct {
	Region string
	Reason string
}

func (e *DecodeFailedError) Error() string {
	return "wire: decode failed in " + e.Region + " region: " + e.Reason
}

func decodeFailed(region, reason string) error {
	return &DecodeFailedError{Region: region, Reason: reason}
}

// EncodeFailedError is returned when serializing inputs would overrun the
// input region.
type EncodeFailedError struct {
	Reason string
}

func (e *EncodeFailedError) Error() string {
	return "wire: encode failed: " + e.Reason
}

// Input is one V_in value: a tagged sum of an unsigned or a signed 32-bit
// integer.
type Input struct {
	Tag byte
	A   uint32
	B   int32
}

// InputA constructs a TagA input value.
func InputA(v uint32) Input { return Input{Tag: TagA, A: v} }

// InputB constructs a TagB input value.
func InputB(v int32) Input { return Input{Tag: TagB, B: v} }

// Output is one V_out value: a nullary tagged enum.
type Output struct {
	Tag byte
}

var (
	OutputX = Output{Tag: TagX}
	OutputY = Output{Tag: TagY}
	OutputZ = Output{Tag: TagZ}
)

// EncodeInputRegion serializes an ordered input sequence using the input
// framing (8-byte length prefix) and zero-pads the result to exactly
// InputRegionSize bytes, preserving the guest's zero-pad invariant (§9(b))
// even though the guest's decoder only reads the length prefix.
func EncodeInputRegion(inputs []Input) ([]byte, error) {
	var body []byte
	for _, in := range inputs {
		body = append(body, in.Tag)
		switch in.Tag {
		case TagA:
			body = appendU32LE(body, in.A)
		case TagB:
			body = appendU32LE(body, uint32(in.B))
		default:
			return nil, errors.Errorf("wire: unknown input tag %d", in.Tag)
		}
	}
	if len(body) > MaxInputPayload {
		return nil, &EncodeFailedError{Reason: "encoded input exceeds 2040 bytes"}
	}

	out := make([]byte, InputRegionSize)
	putU64LE(out[:InputLengthPrefixSize], uint64(len(body)))
	copy(out[InputLengthPrefixSize:], body)
	return out, nil
}

// DecodeInputRegion is the guest-side counterpart of EncodeInputRegion; the
// host doesn't call this (it only ever writes the input region), but it's
// kept alongside the encoder so the round-trip property in §8 is directly
// testable without a real guest.
func DecodeInputRegion(region []byte) ([]Input, error) {
	if len(region) < InputLengthPrefixSize {
		return nil, decodeFailed("input", "region shorter than length prefix")
	}
	n := getU64LE(region[:InputLengthPrefixSize])
	if n > uint64(len(region)-InputLengthPrefixSize) {
		return nil, decodeFailed("input", "length prefix reads past region end")
	}
	body := region[InputLengthPrefixSize : InputLengthPrefixSize+int(n)]

	var out []Input
	off := 0
	for off < len(body) {
		tag := body[off]
		off++
		switch tag {
		case TagA:
			if off+4 > len(body) {
				return nil, decodeFailed("input", "truncated value A")
			}
			out = append(out, InputA(getU32LE(body[off:off+4])))
			off += 4
		case TagB:
			if off+4 > len(body) {
				return nil, decodeFailed("input", "truncated value B")
			}
			out = append(out, InputB(int32(getU32LE(body[off:off+4]))))
			off += 4
		default:
			return nil, decodeFailed("input", "unknown tag")
		}
	}
	return out, nil
}

// EncodeOutputRegion serializes an ordered output sequence using the
// output framing (4-byte length prefix, each element itself a 4-byte
// little-endian discriminant — outputTagSize). Unlike the input region,
// the result is not padded to the full region size — the guest writes
// exactly this many bytes and nothing past the prefix+payload is
// meaningful.
func EncodeOutputRegion(outputs []Output) ([]byte, error) {
	var body []byte
	for _, o := range outputs {
		switch o.Tag {
		case TagX, TagY, TagZ:
			body = appendU32LE(body, uint32(o.Tag))
		default:
			return nil, errors.Errorf("wire: unknown output tag %d", o.Tag)
		}
	}
	if len(body) > MaxOutputPayload {
		return nil, &EncodeFailedError{Reason: "encoded output exceeds 2044 bytes"}
	}
	out := make([]byte, OutputLengthPrefixSize+len(body))
	putU32LE(out[:OutputLengthPrefixSize], uint32(len(body)))
	copy(out[OutputLengthPrefixSize:], body)
	return out, nil
}

// DecodeOutputRegion reads the 4-byte length prefix from region and
// decodes that many bytes as an ordered sequence of nullary actions. It
// rejects any length that would read past region's end, per §4.G.
func DecodeOutputRegion(region []byte) ([]Output, error) {
	if len(region) < OutputLengthPrefixSize {
		return nil, decodeFailed("output", "region shorter than length prefix")
	}
	n := getU32LE(region[:OutputLengthPrefixSize])
	if uint64(n) > uint64(len(region)-OutputLengthPrefixSize) {
		return nil, decodeFailed("output", "length prefix reads past region end")
	}
	body := region[OutputLengthPrefixSize : OutputLengthPrefixSize+int(n)]
	if len(body)%outputTagSize != 0 {
		return nil, decodeFailed("output", "payload length is not a multiple of the element width")
	}

	out := make([]Output, 0, len(body)/outputTagSize)
	for off := 0; off < len(body); off += outputTagSize {
		discriminant := getU32LE(body[off : off+outputTagSize])
		if discriminant > 0xFF {
			return nil, decodeFailed("output", "unknown tag")
		}
		tag := byte(discriminant)
		switch tag {
		case TagX, TagY, TagZ:
			out = append(out, Output{Tag: tag})
		default:
			return nil, decodeFailed("output", "unknown tag")
		}
	}
	return out, nil
}

func appendU32LE(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func putU32LE(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func getU32LE(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func putU64LE(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func getU64LE(buf []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v
}
