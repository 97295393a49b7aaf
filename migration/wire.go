package migration

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// The subset of protobuf wire types the migration payload uses. Fixed-width
// types never occur in the schema but unknown fields using them must still
// be skippable.
const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

var errTruncated = errors.New("truncated wire data")

func appendTag(buf []byte, field, wtype int) []byte {
	return binary.AppendUvarint(buf, uint64(field)<<3|uint64(wtype))
}

// appendVarint appends a varint field. Zero values are omitted, matching
// proto3 encoding of default values.
func appendVarint(buf []byte, field int, v uint64) []byte {
	if v == 0 {
		return buf
	}
	return binary.AppendUvarint(appendTag(buf, field, wireVarint), v)
}

// appendBytes appends a length-delimited field. Empty values are omitted.
func appendBytes(buf []byte, field int, data []byte) []byte {
	if len(data) == 0 {
		return buf
	}
	buf = binary.AppendUvarint(appendTag(buf, field, wireBytes), uint64(len(data)))
	return append(buf, data...)
}

// A wireReader consumes tag/value pairs from a buffer. Every read is
// bounds-checked against the remaining input; a length prefix that claims
// more bytes than remain reports errTruncated instead of reading past the
// end.
type wireReader struct {
	buf []byte
}

func (r *wireReader) done() bool { return len(r.buf) == 0 }

func (r *wireReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		return 0, errTruncated
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *wireReader) tag() (field, wtype int, err error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, 0, err
	}
	return int(v >> 3), int(v & 7), nil
}

func (r *wireReader) bytes() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)) {
		return nil, errTruncated
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

// skip discards one value of the given wire type, so that unknown fields do
// not break decoding.
func (r *wireReader) skip(wtype int) error {
	switch wtype {
	case wireVarint:
		_, err := r.uvarint()
		return err
	case wireBytes:
		_, err := r.bytes()
		return err
	case wireFixed64, wireFixed32:
		n := 8
		if wtype == wireFixed32 {
			n = 4
		}
		if len(r.buf) < n {
			return errTruncated
		}
		r.buf = r.buf[n:]
		return nil
	}
	return fmt.Errorf("unsupported wire type %d", wtype)
}
