package cnpy

import (
	"encoding/binary"
	"io"

	"golang.org/x/exp/constraints"
)

// Writer wraps an io.Writer with little-endian primitives for building npy
// headers and zip records. It tracks the first error that occurs; after an
// error, all subsequent write operations become no-ops, so a record can be
// emitted field by field with a single error check via Result.
type Writer struct {
	w     io.Writer
	count int64 // total bytes written
	err   error // first error encountered. Subsequent writes become no-ops.
}

// NewWriter creates a Writer positioned at the current point of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements the io.Writer interface.
func (w *Writer) Write(buf []byte) (int, error) {
	if len(buf) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	w.count += int64(n)
	w.setError(err)
	if err == nil && n < len(buf) {
		w.setError(io.ErrShortWrite)
	}
	return n, w.err
}

func (w *Writer) Count() int64 { return w.count }
func (w *Writer) Err() error   { return w.err }

// setError records the first non-nil error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result returns the final count and error state.
func (w *Writer) Result() (int64, error) {
	return w.count, w.err
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(buf []byte) {
	_, _ = w.Write(buf)
}

// WriteString writes the raw bytes of a string.
func (w *Writer) WriteString(s string) {
	if s == "" || w.err != nil {
		return
	}
	n, err := io.WriteString(w.w, s)
	w.count += int64(n)
	w.setError(err)
	if err == nil && n < len(s) {
		w.setError(io.ErrShortWrite)
	}
}

// --- Primitive Write Operations (all little-endian) ---

func (w *Writer) WriteUint8(v uint8) {
	var buf [1]byte
	buf[0] = v
	_, _ = w.Write(buf[:])
}

func (w *Writer) WriteUint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, _ = w.Write(buf[:])
}

func (w *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = w.Write(buf[:])
}

// Roundup rounds n up to the nearest multiple of align. align must be a
// power of two.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }
