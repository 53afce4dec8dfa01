// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package packio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// byteBuffer is a wrapper around standard varint encoder to allow for
// automatic buffer sizing.  It is write-only; see decoder for the read side.
type byteBuffer []byte

// Ensure that b.buf can store at least "bytes" more bytes.
func (b *byteBuffer) alloc(bytes int) []byte {
	blen := len(*b)
	newLen := blen + bytes
	if cap(*b) >= newLen {
		(*b) = (*b)[:newLen]
		return (*b)[blen:]
	}
	newCap := (newLen/16 + 1) * 16
	if newCap < cap(*b)*2 {
		newCap = cap(*b) * 2
	}
	newBuf := make([]byte, newLen, newCap)
	copy(newBuf, *b)
	*b = newBuf
	return (*b)[blen:]
}

// PutUint8 adds one byte to the buffer.
func (b *byteBuffer) PutUint8(value uint8) {
	(b.alloc(1))[0] = value
}

// PutBytes add bytes raw, w/o prefixing its length.
func (b *byteBuffer) PutBytes(data []byte) {
	copy(b.alloc(len(data)), data)
}

// PutString adds a string prefixed by its uvarint length.
func (b *byteBuffer) PutString(data string) {
	b.PutUvarint64(uint64(len(data)))
	copy(b.alloc(len(data)), data)
}

// PutUint16 adds the value as a fixed16.
func (b *byteBuffer) PutUint16(value uint16) {
	binary.LittleEndian.PutUint16(b.alloc(2), value)
}

// PutUint64 adds the value as a fixed64.
func (b *byteBuffer) PutUint64(value uint64) {
	binary.LittleEndian.PutUint64(b.alloc(8), value)
}

// PutVarint64 adds the value as a signed varint.
func (b *byteBuffer) PutVarint64(value int64) {
	x := b.alloc(binary.MaxVarintLen64)
	n := binary.PutVarint(x, value)
	if delta := binary.MaxVarintLen64 - n; delta != 0 {
		(*b) = (*b)[:len(*b)-delta]
	}
}

// PutUvarint64 adds the value as an unsigned varint.
func (b *byteBuffer) PutUvarint64(value uint64) {
	x := b.alloc(binary.MaxVarintLen64)
	n := binary.PutUvarint(x, value)
	if delta := binary.MaxVarintLen64 - n; delta != 0 {
		(*b) = (*b)[:len(*b)-delta]
	}
}

// DecodeError describes malformed container bytes.  Offset is relative to the
// start of the region being decoded (the file for header fields, the
// uncompressed body otherwise).
type DecodeError struct {
	Offset int
	Field  string
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packio: offset %d: %s: %s", e.Offset, e.Field, e.Msg)
}

// decoder reads the values written by byteBuffer.  Every read is bounds
// checked.  The first failure is latched in err; later reads return zero
// values, so callers may check err once per logical unit.
type decoder struct {
	buf []byte
	off int
	// field and index name the value being read, for error messages.
	// index < 0 means the field is not repeated.
	field string
	index int
	err   *DecodeError
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf, index: -1} }

// at names the next value read.
func (d *decoder) at(field string, index int) {
	d.field, d.index = field, index
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	field := d.field
	if d.index >= 0 {
		field = fmt.Sprintf("%s[%d]", d.field, d.index)
	}
	d.err = &DecodeError{Offset: d.off, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// remaining returns the number of unread bytes.
func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.remaining() < n {
		d.fail("truncated: need %d byte(s), have %d", n, d.remaining())
		return false
	}
	return true
}

// Uint8 reads a fixed8 value.
func (d *decoder) Uint8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

// Uint16 reads a fixed16 value.
func (d *decoder) Uint16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

// Uint64 reads a fixed64 value.
func (d *decoder) Uint64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

// Varint64 reads a signed varint.
func (d *decoder) Varint64() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf[d.off:])
	if n <= 0 {
		d.fail("bad varint")
		return 0
	}
	d.off += n
	return v
}

// Uvarint64 reads an unsigned varint.
func (d *decoder) Uvarint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.fail("bad uvarint")
		return 0
	}
	d.off += n
	return v
}

// Count reads an uvarint element count.  Each element occupies at least
// minSize bytes, so a count that can't fit in the remaining input is rejected
// before anything is allocated for it.
func (d *decoder) Count(minSize int) int {
	v := d.Uvarint64()
	if d.err != nil {
		return 0
	}
	if v > math.MaxInt32 || int(v)*minSize > d.remaining() {
		d.fail("count %d exceeds remaining %d byte(s)", v, d.remaining())
		return 0
	}
	return int(v)
}

// RawBytes extracts the next n bytes.  The result aliases the input.
func (d *decoder) RawBytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	v := d.buf[d.off : d.off+n]
	d.off += n
	return v
}

// LenString reads a length-prefixed string.
func (d *decoder) LenString() string {
	n := d.Count(1)
	return string(d.RawBytes(n))
}
