// Package binio provides the big-endian primitives shared by depview's
// persisted formats.
//
// Integers are 4-byte big-endian two's complement, matching the JVM
// DataOutput encoding that incremental caches have always been written in.
// Both Writer and Reader keep the first error they hit and turn every later
// call into a no-op, so record codecs can write straight-line code and check
// Err once at the end.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNegativeLength is returned when a length prefix is negative where an
// absent value is not allowed.
var ErrNegativeLength = errors.New("negative length prefix")

// maxStringLen bounds string prefixes so corrupt data fails fast instead of
// allocating gigabytes.
const maxStringLen = 1 << 24

// Writer writes big-endian primitives with a sticky error.
type Writer struct {
	w   io.Writer
	buf [4]byte
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	if w.err != nil {
		return
	}
	w.buf[0] = b
	_, w.err = w.w.Write(w.buf[:1])
}

// Int32 writes a 4-byte big-endian signed integer.
func (w *Writer) Int32(v int32) {
	if w.err != nil {
		return
	}
	binary.BigEndian.PutUint32(w.buf[:], uint32(v))
	_, w.err = w.w.Write(w.buf[:])
}

// Len writes a collection length as Int32.
func (w *Writer) Len(n int) {
	if n > math.MaxInt32 {
		if w.err == nil {
			w.err = fmt.Errorf("length %d exceeds int32", n)
		}
		return
	}
	w.Int32(int32(n))
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) {
	w.Len(len(s))
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Raw writes p unchanged.
func (w *Writer) Raw(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

// Reader reads big-endian primitives with a sticky error.
type Reader struct {
	r   io.Reader
	buf [4]byte
	err error
}

// NewReader wraps r. It never reads past the last value asked for, so
// several Readers may consume the same stream in turn. Callers buffer r
// themselves when it is slow.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered. A stream that ends inside a
// value reports io.ErrUnexpectedEOF; a stream that ends cleanly before a
// value reports io.EOF.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an error is already pending.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Byte reads a single byte.
func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	_, r.err = io.ReadFull(r.r, r.buf[:1])
	return r.buf[0]
}

// Int32 reads a 4-byte big-endian signed integer.
func (r *Reader) Int32() int32 {
	if r.err != nil {
		return 0
	}
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		r.err = unexpected(err)
		return 0
	}
	return int32(binary.BigEndian.Uint32(r.buf[:]))
}

// Len reads a non-negative collection length.
func (r *Reader) Len() int {
	n := r.Int32()
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.err = fmt.Errorf("%w: %d", ErrNegativeLength, n)
		return 0
	}
	return int(n)
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	n := r.Len()
	if r.err != nil {
		return ""
	}
	if n > maxStringLen {
		r.err = fmt.Errorf("string length %d exceeds limit", n)
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = unexpected(err)
		return ""
	}
	return string(b)
}

// Raw fills p.
func (r *Reader) Raw(p []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		r.err = unexpected(err)
	}
}

// Continue turns a mid-record io.EOF into io.ErrUnexpectedEOF. Codecs call
// it after the leading byte of a record was read successfully.
func (r *Reader) Continue() {
	if errors.Is(r.err, io.EOF) {
		r.err = io.ErrUnexpectedEOF
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
