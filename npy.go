package cnpy

import (
	"fmt"
	"io"
	"os"
)

// SaveMode selects between replacing the target file and growing it in place.
type SaveMode int

const (
	// Create truncates or creates the target.
	Create SaveMode = iota
	// Append grows an existing target along its leading dimension. When the
	// target does not exist, Append behaves like Create.
	Append
)

// ReadNpy decodes one npy stream: header dictionary followed by the raw
// element bytes.
func ReadNpy(rd io.Reader) (Array, error) {
	return readNpy(NewReader(rd))
}

func readNpy(r *Reader) (Array, error) {
	wordSize, shape, fortranOrder, err := ParseHeader(r)
	if err != nil {
		return Array{}, err
	}
	arr := NewArray(shape, wordSize, fortranOrder)
	r.ReadBytesTo(arr.Data)
	if err := r.Err(); err != nil {
		return Array{}, fmt.Errorf("%w: expected %d element bytes: %v", ErrTruncatedPayload, arr.NumBytes(), err)
	}
	return arr, nil
}

// LoadNpy reads one array from a standalone .npy file.
func LoadNpy(path string) (Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return Array{}, err
	}
	defer f.Close()
	return ReadNpy(f)
}

// SaveNpy writes data as a .npy file. data holds the little-endian element
// bytes, len(data) must equal dt.Size times the product of shape.
//
// In Append mode an existing target must hold a row-major array of the same
// word size whose trailing dimensions match shape; the leading dimensions
// are summed, the header is rewritten in place and only the new element
// bytes are appended. The existing payload is never rewritten.
func SaveNpy(path string, dt Dtype, shape []int, data []byte, mode SaveMode) error {
	if len(data) != dt.Size*numElements(shape) {
		return fmt.Errorf("%w: %d bytes for shape %v with word size %d", ErrSizeMismatch, len(data), shape, dt.Size)
	}
	if mode == Append {
		if _, err := os.Stat(path); err == nil {
			return appendNpy(path, dt, shape, data)
		}
	}
	return createNpy(path, dt, shape, data)
}

// SaveNpySlice writes a typed slice as a .npy file, deriving the dtype from
// the element type.
func SaveNpySlice[T Element](path string, data []T, shape []int, mode SaveMode) error {
	return SaveNpy(path, DtypeOf[T](), shape, sliceBytes(data), mode)
}

func createNpy(path string, dt Dtype, shape []int, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := NewWriter(f)
	w.WriteBytes(EncodeHeader(dt, shape))
	w.WriteBytes(data)
	_, err = w.Result()
	return err
}

func appendNpy(path string, dt Dtype, shape []int, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r := NewReader(f)
	wordSize, existing, fortranOrder, err := ParseHeader(r)
	if err != nil {
		return err
	}
	headerLen := r.Count()

	if fortranOrder {
		return fmt.Errorf("%w: existing file is fortran-ordered", ErrAppendIncompatible)
	}
	if wordSize != dt.Size {
		return fmt.Errorf("%w: word size: new=%d existing=%d", ErrAppendIncompatible, dt.Size, wordSize)
	}
	if len(shape) == 0 {
		return fmt.Errorf("%w: cannot append to a scalar", ErrAppendIncompatible)
	}
	if len(existing) != len(shape) {
		return fmt.Errorf("%w: rank: new=%d existing=%d", ErrAppendIncompatible, len(shape), len(existing))
	}
	for i := 1; i < len(shape); i++ {
		if shape[i] != existing[i] {
			return fmt.Errorf("%w: dimension %d: new=%d existing=%d", ErrAppendIncompatible, i, shape[i], existing[i])
		}
	}

	combined := make([]int, len(existing))
	copy(combined, existing)
	combined[0] += shape[0]

	// The header is rewritten at offset 0 over the old one. Growing the
	// leading dimension can push the padded dictionary across a 64-byte
	// boundary; overwriting payload bytes with header text would corrupt
	// the file, so that case is rejected.
	header := EncodeHeader(dt, combined)
	if int64(len(header)) != headerLen {
		return fmt.Errorf("%w: header length would change from %d to %d bytes", ErrAppendIncompatible, headerLen, len(header))
	}

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w := NewWriter(f)
	w.WriteBytes(header)
	if _, err = w.Result(); err != nil {
		return err
	}
	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	w = NewWriter(f)
	w.WriteBytes(data)
	_, err = w.Result()
	return err
}
