package cnpy

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// npyMagic opens every npy header, standalone or embedded in an archive entry.
const npyMagic = "\x93NUMPY"

// headerAlign is the boundary the full header must land on: magic, version
// bytes, length field, dictionary text, padding and trailing newline.
const headerAlign = 64

// ParseHeader decodes the npy preamble and header dictionary from r and
// returns the element width in bytes, the shape (empty for a scalar), and
// the fortran-order flag. It consumes exactly the header bytes, leaving r
// positioned at the first element byte.
func ParseHeader(r *Reader) (wordSize int, shape []int, fortranOrder bool, err error) {
	magic := r.ReadBytes(len(npyMagic))

	var major, minor uint8
	r.ReadUint8(&major)
	r.ReadUint8(&minor)
	if err := r.Err(); err != nil {
		return 0, nil, false, fmt.Errorf("%w: reading npy preamble: %v", ErrTruncatedHeader, err)
	}
	if string(magic) != npyMagic {
		return 0, nil, false, fmt.Errorf("%w: expected npy magic %q, got %q", ErrFormat, npyMagic, magic)
	}

	var headerLen uint32
	switch {
	case major == 1 && minor == 0:
		var short uint16
		r.ReadUint16(&short)
		headerLen = uint32(short)
	case major == 2 && minor == 0:
		r.ReadUint32(&headerLen)
	default:
		return 0, nil, false, fmt.Errorf("%w: npy version %d.%d", ErrUnsupportedVersion, major, minor)
	}

	dict := r.ReadBytes(int(headerLen))
	if err := r.Err(); err != nil {
		return 0, nil, false, fmt.Errorf("%w: expected %d dictionary bytes: %v", ErrTruncatedHeader, headerLen, err)
	}
	if len(dict) == 0 || dict[len(dict)-1] != '\n' {
		return 0, nil, false, fmt.Errorf("%w: dictionary does not end with newline", ErrTruncatedHeader)
	}
	hdr := string(dict)

	fortranOrder, err = parseFortranOrder(hdr)
	if err != nil {
		return 0, nil, false, err
	}
	shape, err = parseShape(hdr)
	if err != nil {
		return 0, nil, false, err
	}
	wordSize, err = parseDescr(hdr)
	if err != nil {
		return 0, nil, false, err
	}
	return wordSize, shape, fortranOrder, nil
}

// parseFortranOrder reads the boolean 16 characters past the start of the
// "fortran_order" key: past the key itself, the closing quote, the colon and
// the space.
func parseFortranOrder(hdr string) (bool, error) {
	loc := strings.Index(hdr, "fortran_order")
	if loc < 0 {
		return false, fmt.Errorf("%w: fortran_order", ErrMissingField)
	}
	loc += 16
	return loc+4 <= len(hdr) && hdr[loc:loc+4] == "True", nil
}

// parseShape collects every maximal run of decimal digits between the first
// pair of parentheses, one run per dimension. "()" is a scalar and yields an
// empty shape.
func parseShape(hdr string) ([]int, error) {
	open := strings.IndexByte(hdr, '(')
	closing := strings.IndexByte(hdr, ')')
	if open < 0 || closing < 0 || closing < open {
		return nil, fmt.Errorf("%w: shape", ErrMissingField)
	}

	var shape []int
	for i := open + 1; i < closing; {
		if hdr[i] < '0' || hdr[i] > '9' {
			i++
			continue
		}
		j := i
		for j < closing && hdr[j] >= '0' && hdr[j] <= '9' {
			j++
		}
		dim, err := strconv.Atoi(hdr[i:j])
		if err != nil {
			return nil, fmt.Errorf("%w: shape dimension %q: %v", ErrMissingField, hdr[i:j], err)
		}
		shape = append(shape, dim)
		i = j
	}
	return shape, nil
}

// parseDescr validates the endianness marker 9 characters past the start of
// the "descr" key and reads the decimal element width that follows the
// one-letter kind code.
func parseDescr(hdr string) (int, error) {
	loc := strings.Index(hdr, "descr")
	if loc < 0 {
		return 0, fmt.Errorf("%w: descr", ErrMissingField)
	}
	loc += 9
	if loc >= len(hdr) {
		return 0, fmt.Errorf("%w: descr value", ErrMissingField)
	}
	if hdr[loc] != LittleEndian && hdr[loc] != NoEndian {
		return 0, fmt.Errorf("%w: descr marker %q", ErrEndianness, hdr[loc])
	}

	// Skip the marker and the kind code; the width digits run to the
	// closing quote.
	start := loc + 2
	end := strings.IndexByte(hdr[start:], '\'')
	if end < 0 {
		return 0, fmt.Errorf("%w: descr width", ErrMissingField)
	}
	wordSize, err := strconv.Atoi(hdr[start : start+end])
	if err != nil {
		return 0, fmt.Errorf("%w: descr width %q: %v", ErrMissingField, hdr[start:start+end], err)
	}
	return wordSize, nil
}

// EncodeHeader serializes the full npy header for an array of the given
// dtype and shape: magic, version bytes, length field, dictionary text,
// space padding and the trailing newline. The writer always records
// fortran_order as False; this codec only produces row-major files.
//
// The header is padded so its total length is a multiple of 64 bytes. When
// the padded dictionary no longer fits a 16-bit length field the version
// switches from 1.0 to 2.0 with a 32-bit field.
func EncodeHeader(dt Dtype, shape []int) []byte {
	var dict bytes.Buffer
	dict.WriteString("{'descr': '")
	dict.WriteByte(dt.Endian)
	dict.WriteByte(dt.Kind)
	dict.WriteString(strconv.Itoa(dt.Size))
	dict.WriteString("', 'fortran_order': False, 'shape': (")
	for i, dim := range shape {
		if i > 0 {
			dict.WriteString(", ")
		}
		dict.WriteString(strconv.Itoa(dim))
	}
	if len(shape) == 1 {
		dict.WriteByte(',')
	}
	dict.WriteString("), }")

	// The dictionary length recorded in the header counts padding and the
	// trailing newline.
	major := byte(1)
	preamble := len(npyMagic) + 2 + 2
	dictLen := Roundup(preamble+dict.Len()+1, headerAlign) - preamble
	if dictLen > math.MaxUint16 {
		major = 2
		preamble = len(npyMagic) + 2 + 4
		dictLen = Roundup(preamble+dict.Len()+1, headerAlign) - preamble
	}

	var buf bytes.Buffer
	buf.Grow(preamble + dictLen)
	w := NewWriter(&buf)
	w.WriteString(npyMagic)
	w.WriteUint8(major)
	w.WriteUint8(0)
	if major == 2 {
		w.WriteUint32(uint32(dictLen))
	} else {
		w.WriteUint16(uint16(dictLen))
	}
	w.WriteBytes(dict.Bytes())
	w.WriteBytes(bytes.Repeat([]byte{' '}, dictLen-dict.Len()-1))
	w.WriteUint8('\n')
	return buf.Bytes()
}
