package cnpy

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
)

// Zip framing constants. Only the subset of the format that npz archives
// use is recognized: single-disk, uncommented, methods stored and deflated.
const (
	zipLocalHeaderLen = 30
	zipFooterLen      = 22
	zipVersionExtract = 20

	methodStored   = 0
	methodDeflated = 8
)

const npySuffix = ".npy"

// ReadNpz decodes an npz archive stream entry by entry and returns the
// arrays keyed by entry name (with the writer's ".npy" suffix stripped).
// A repeated name overwrites the earlier entry. Iteration ends at the
// central directory or at a clean end of stream; any failure discards every
// entry decoded so far.
func ReadNpz(rd io.Reader) (map[string]Array, error) {
	r := NewReader(rd)
	arrays := make(map[string]Array)
	for {
		local := r.ReadBytes(zipLocalHeaderLen)
		if err := r.Err(); err != nil {
			if errors.Is(err, io.EOF) {
				break // stream exhausted at an entry boundary
			}
			return nil, fmt.Errorf("%w: reading local entry header: %v", ErrTruncatedHeader, err)
		}
		if local[2] != 0x03 || local[3] != 0x04 {
			// Start of the central directory; no more entries.
			break
		}

		var (
			sig, crc                         uint32
			version, flags, method           uint16
			modTime, modDate                 uint16
			compressedSize, uncompressedSize uint32
			nameLen, extraLen                uint16
		)
		lr := NewReader(bytes.NewReader(local))
		lr.ReadUint32(&sig)
		lr.ReadUint16(&version)
		lr.ReadUint16(&flags)
		lr.ReadUint16(&method)
		lr.ReadUint16(&modTime)
		lr.ReadUint16(&modDate)
		lr.ReadUint32(&crc)
		lr.ReadUint32(&compressedSize)
		lr.ReadUint32(&uncompressedSize)
		lr.ReadUint16(&nameLen)
		lr.ReadUint16(&extraLen)

		name := string(r.ReadBytes(int(nameLen)))
		r.Discard(int64(extraLen))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: reading entry name: %v", ErrTruncatedHeader, err)
		}
		if len(name) >= len(npySuffix) {
			name = name[:len(name)-len(npySuffix)]
		}

		var (
			arr Array
			err error
		)
		switch method {
		case methodStored:
			arr, err = readNpy(r)
		case methodDeflated:
			arr, err = readDeflatedEntry(r, compressedSize, uncompressedSize)
		default:
			return nil, fmt.Errorf("%w: compression method %d for entry %q", ErrUnsupportedArchive, method, name)
		}
		if err != nil {
			return nil, err
		}
		arrays[name] = arr
	}
	return arrays, nil
}

// LoadNpz reads every array from an npz archive file.
func LoadNpz(path string) (map[string]Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNpz(f)
}

// readDeflatedEntry inflates compressedSize bytes as a raw deflate stream
// into exactly uncompressedSize bytes, then decodes the embedded npy. The
// element payload is the tail of the inflated buffer; any leading bytes
// belong to the embedded header.
func readDeflatedEntry(r *Reader, compressedSize, uncompressedSize uint32) (Array, error) {
	compressed := r.ReadBytes(int(compressedSize))
	if err := r.Err(); err != nil {
		return Array{}, fmt.Errorf("%w: expected %d compressed bytes: %v", ErrTruncatedPayload, compressedSize, err)
	}

	inflated := make([]byte, uncompressedSize)
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	if _, err := io.ReadFull(fr, inflated); err != nil {
		return Array{}, fmt.Errorf("%w: expected %d inflated bytes: %v", ErrDecompression, uncompressedSize, err)
	}
	var extra [1]byte
	if n, _ := fr.Read(extra[:]); n > 0 {
		return Array{}, fmt.Errorf("%w: inflated past the recorded size of %d bytes", ErrDecompression, uncompressedSize)
	}

	br := NewReader(bytes.NewReader(inflated))
	wordSize, shape, fortranOrder, err := ParseHeader(br)
	if err != nil {
		return Array{}, err
	}
	arr := NewArray(shape, wordSize, fortranOrder)
	offset := int(uncompressedSize) - arr.NumBytes()
	if offset < 0 {
		return Array{}, fmt.Errorf("%w: inflated entry holds fewer than %d element bytes", ErrTruncatedPayload, arr.NumBytes())
	}
	copy(arr.Data, inflated[offset:])
	return arr, nil
}

// SaveNpz appends one named array to an npz archive, creating the archive
// when it does not exist. Entries are always written stored (method 0), even
// though ReadNpz accepts deflated ones; downstream consumers rely on being
// able to stream-copy stored entries.
//
// In Append mode on an existing archive, the new entry overwrites the start
// of the old central directory and the directory plus end record are rebuilt
// behind it.
func SaveNpz(path, name string, dt Dtype, shape []int, data []byte, mode SaveMode) (err error) {
	if len(data) != dt.Size*numElements(shape) {
		return fmt.Errorf("%w: %d bytes for shape %v with word size %d", ErrSizeMismatch, len(data), shape, dt.Size)
	}
	entryName := name + npySuffix

	var (
		nrecs      uint16
		cdOffset   int64
		centralDir []byte
	)

	exists := false
	if mode == Append {
		if _, statErr := os.Stat(path); statErr == nil {
			exists = true
		}
	}

	var f *os.File
	if exists {
		f, err = os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
	} else {
		f, err = os.Create(path)
		if err != nil {
			return err
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if exists {
		var cdSize uint32
		var cdStart uint32
		nrecs, cdSize, cdStart, err = parseZipFooter(f)
		if err != nil {
			return err
		}
		if _, err = f.Seek(int64(cdStart), io.SeekStart); err != nil {
			return err
		}
		centralDir = make([]byte, cdSize)
		cr := NewReader(f)
		cr.ReadBytesTo(centralDir)
		if rerr := cr.Err(); rerr != nil {
			return fmt.Errorf("%w: reading central directory of %d bytes: %v", ErrTruncatedHeader, cdSize, rerr)
		}
		// The new entry's local header overwrites what used to be the
		// start of the central directory.
		if _, err = f.Seek(int64(cdStart), io.SeekStart); err != nil {
			return err
		}
		cdOffset = int64(cdStart)
	}

	header := EncodeHeader(dt, shape)
	nbytes := len(header) + len(data)

	crc := crc32.ChecksumIEEE(header)
	crc = crc32.Update(crc, crc32.IEEETable, data)

	var local bytes.Buffer
	lw := NewWriter(&local)
	lw.WriteString("PK")
	lw.WriteUint16(0x0403) // second part of the local header signature
	lw.WriteUint16(zipVersionExtract)
	lw.WriteUint16(0) // general purpose bit flag
	lw.WriteUint16(methodStored)
	lw.WriteUint16(0) // last mod time
	lw.WriteUint16(0) // last mod date
	lw.WriteUint32(crc)
	lw.WriteUint32(uint32(nbytes)) // compressed size; stored, so equal
	lw.WriteUint32(uint32(nbytes)) // uncompressed size
	lw.WriteUint16(uint16(len(entryName)))
	lw.WriteUint16(0) // extra field length
	lw.WriteString(entryName)

	// The central record repeats bytes 4..30 of the local header verbatim.
	cd := bytes.NewBuffer(centralDir)
	cw := NewWriter(cd)
	cw.WriteString("PK")
	cw.WriteUint16(0x0201)            // second part of the central record signature
	cw.WriteUint16(zipVersionExtract) // version made by
	cw.WriteBytes(local.Bytes()[4:zipLocalHeaderLen])
	cw.WriteUint16(0) // file comment length
	cw.WriteUint16(0) // disk number where file starts
	cw.WriteUint16(0) // internal file attributes
	cw.WriteUint32(0) // external file attributes
	cw.WriteUint32(uint32(cdOffset)) // offset of the entry's local header
	cw.WriteString(entryName)

	var footer bytes.Buffer
	fw := NewWriter(&footer)
	fw.WriteString("PK")
	fw.WriteUint16(0x0605) // second part of the end record signature
	fw.WriteUint16(0)      // number of this disk
	fw.WriteUint16(0)      // disk where the central directory starts
	fw.WriteUint16(nrecs + 1)
	fw.WriteUint16(nrecs + 1)
	fw.WriteUint32(uint32(cd.Len()))
	fw.WriteUint32(uint32(cdOffset + int64(local.Len()) + int64(nbytes)))
	fw.WriteUint16(0) // comment length

	w := NewWriter(f)
	w.WriteBytes(local.Bytes())
	w.WriteBytes(header)
	w.WriteBytes(data)
	w.WriteBytes(cd.Bytes())
	w.WriteBytes(footer.Bytes())
	_, err = w.Result()
	return err
}

// SaveNpzSlice appends a typed slice to an npz archive, deriving the dtype
// from the element type.
func SaveNpzSlice[T Element](path, name string, data []T, shape []int, mode SaveMode) error {
	return SaveNpz(path, name, DtypeOf[T](), shape, sliceBytes(data), mode)
}

// parseZipFooter reads the 22-byte end-of-archive record from the end of f
// and returns the entry count, central-directory size and offset. Archives
// that span disks or carry a comment are rejected.
func parseZipFooter(f *os.File) (nrecs uint16, cdSize, cdOffset uint32, err error) {
	if _, err = f.Seek(-zipFooterLen, io.SeekEnd); err != nil {
		return 0, 0, 0, err
	}

	var (
		sig               uint32
		diskNo, diskStart uint16
		nrecsDisk, total  uint16
		size, offset      uint32
		commentLen        uint16
	)
	r := NewReader(f)
	r.ReadUint32(&sig)
	r.ReadUint16(&diskNo)
	r.ReadUint16(&diskStart)
	r.ReadUint16(&nrecsDisk)
	r.ReadUint16(&total)
	r.ReadUint32(&size)
	r.ReadUint32(&offset)
	r.ReadUint16(&commentLen)
	if rerr := r.Err(); rerr != nil {
		return 0, 0, 0, fmt.Errorf("%w: reading end-of-archive record: %v", ErrTruncatedHeader, rerr)
	}
	if sig != 0x06054b50 {
		return 0, 0, 0, fmt.Errorf("%w: end-of-archive signature 0x%08x", ErrFormat, sig)
	}
	if diskNo != 0 || diskStart != 0 || nrecsDisk != total || commentLen != 0 {
		return 0, 0, 0, fmt.Errorf(
			"%w: disk=%d start=%d per-disk=%d total=%d comment=%d",
			ErrUnsupportedArchive, diskNo, diskStart, nrecsDisk, total, commentLen)
	}
	return total, size, offset, nil
}
