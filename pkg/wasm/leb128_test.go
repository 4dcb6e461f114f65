package wasm

import "testing"

func TestULEB128RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 1 << 20, 0xFFFFFFFF}
	for _, v := range cases {
		buf := appendULEB128(nil, v)
		got, n, err := readULEB128(buf, 0)
		if err != nil {
			t.Fatalf("readULEB128(%d): %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Errorf("roundtrip(%d) = %d, consumed %d/%d", v, got, n, len(buf))
		}
	}
}

func TestSLEB128RoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, 63, -64, 64, -65, 1000000, -1000000}
	for _, v := range cases {
		buf := appendSLEB128(nil, v)
		got, n, err := readSLEB128(buf, 0)
		if err != nil {
			t.Fatalf("readSLEB128(%d): %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Errorf("roundtrip(%d) = %d, consumed %d/%d", v, got, n, len(buf))
		}
	}
}
