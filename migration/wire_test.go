package migration

import (
	"errors"
	"testing"
)

func TestWireReaderBounds(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"EmptyAfterTag", []byte{0x0a}},                // tag only, no length
		{"LengthOverrun", []byte{0x0a, 0x10, 'a'}},     // claims 16 bytes, has 1
		{"UnterminatedVarint", []byte{0x10, 0x80}},     // continuation bit, no byte
		{"FixedOverrun", []byte{0x09, 0x01, 0x02}},     // fixed64 with 2 bytes left
		{"Fixed32Overrun", []byte{0x0d, 0x01, 0x02}},   // fixed32 with 2 bytes left
		{"HugeLength", []byte{0x0a, 0xff, 0xff, 0x7f}}, // length far past the buffer
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &wireReader{buf: tc.buf}
			for !r.done() {
				field, wtype, err := r.tag()
				if err != nil {
					if !errors.Is(err, errTruncated) {
						t.Errorf("tag: got %v, want %v", err, errTruncated)
					}
					return
				}
				_ = field
				if err := r.skip(wtype); err != nil {
					if !errors.Is(err, errTruncated) {
						t.Errorf("skip: got %v, want %v", err, errTruncated)
					}
					return
				}
			}
			t.Error("consumed malformed buffer without error")
		})
	}
}

func TestAppendRoundTrip(t *testing.T) {
	var buf []byte
	buf = appendBytes(buf, 1, []byte("hello"))
	buf = appendVarint(buf, 2, 300)
	buf = appendVarint(buf, 3, 0) // zero values are omitted
	buf = appendBytes(buf, 4, nil)

	r := &wireReader{buf: buf}

	field, wtype, err := r.tag()
	if err != nil || field != 1 || wtype != wireBytes {
		t.Fatalf("tag: got (%d, %d, %v), want (1, %d, nil)", field, wtype, err, wireBytes)
	}
	data, err := r.bytes()
	if err != nil || string(data) != "hello" {
		t.Fatalf("bytes: got (%q, %v), want (hello, nil)", data, err)
	}

	field, wtype, err = r.tag()
	if err != nil || field != 2 || wtype != wireVarint {
		t.Fatalf("tag: got (%d, %d, %v), want (2, %d, nil)", field, wtype, err, wireVarint)
	}
	v, err := r.uvarint()
	if err != nil || v != 300 {
		t.Fatalf("uvarint: got (%d, %v), want (300, nil)", v, err)
	}

	if !r.done() {
		t.Errorf("reader not exhausted; %d bytes remain", len(r.buf))
	}
}
