package cnpy

import (
	"encoding/binary"
	"io"
)

// Reader wraps an io.Reader with little-endian primitives for decoding the
// npy and zip framing. It tracks the first error encountered; after an error,
// all subsequent read operations become no-ops, so a sequence of field reads
// only needs a single error check at the end.
type Reader struct {
	r     io.Reader
	count int64 // total bytes read
	err   error // first error encountered.
}

// NewReader creates a Reader positioned at the current point of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// readFull is an internal helper to read an exact number of bytes.
func (r *Reader) readFull(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	// io.ReadFull reports a clean end-of-stream as io.EOF and a partial
	// read as io.ErrUnexpectedEOF; callers rely on that distinction.
	nn, err := io.ReadFull(r.r, buf)
	r.count += int64(nn)
	if err != nil {
		r.err = err
		return nil
	}
	return buf
}

// ReadBytes reads exactly n bytes and returns a new byte slice.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return r.readFull(n)
}

// ReadBytesTo reads exactly len(dest) bytes into dest.
func (r *Reader) ReadBytesTo(dest []byte) {
	if r.err != nil || len(dest) == 0 {
		return
	}
	n, err := io.ReadFull(r.r, dest)
	r.count += int64(n)
	r.setError(err)
}

// Discard reads and drops n bytes, typically an extra field nobody needs.
func (r *Reader) Discard(n int64) {
	if r.err != nil || n <= 0 {
		return
	}
	nn, err := io.CopyN(io.Discard, r.r, n)
	r.count += nn
	r.setError(err)
}

// --- Primitive Read Operations (all little-endian) ---

func (r *Reader) ReadUint8(dest *uint8) {
	buf := r.readFull(1)
	if r.err == nil {
		*dest = buf[0]
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	buf := r.readFull(2)
	if r.err == nil {
		*dest = binary.LittleEndian.Uint16(buf)
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	buf := r.readFull(4)
	if r.err == nil {
		*dest = binary.LittleEndian.Uint32(buf)
	}
}
