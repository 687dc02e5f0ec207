package cnpy

import "errors"

var (
	// ErrFormat indicates that a magic number or record signature did not
	// match the npy or zip constants.
	ErrFormat = errors.New("cnpy: bad magic or signature")

	// ErrUnsupportedVersion indicates an npy header version other than 1.0 or 2.0.
	ErrUnsupportedVersion = errors.New("cnpy: unsupported npy format version")

	// ErrUnsupportedArchive indicates an archive this codec cannot process:
	// multi-disk layouts, archive comments, or a compression method other
	// than stored (0) and deflated (8).
	ErrUnsupportedArchive = errors.New("cnpy: unsupported archive layout")

	// ErrTruncatedHeader indicates the stream ended inside an npy or zip header.
	ErrTruncatedHeader = errors.New("cnpy: truncated header")

	// ErrTruncatedPayload indicates the stream ended inside the element bytes.
	ErrTruncatedPayload = errors.New("cnpy: truncated payload")

	// ErrMissingField indicates the header dictionary lacks a required key.
	ErrMissingField = errors.New("cnpy: missing header field")

	// ErrEndianness indicates a descr marker other than '<' or '|';
	// big-endian payloads are not supported.
	ErrEndianness = errors.New("cnpy: big-endian data not supported")

	// ErrDecompression indicates a raw-deflate stream failed to inflate, or
	// inflated to a size other than the one recorded in the entry header.
	ErrDecompression = errors.New("cnpy: deflate decompression failed")

	// ErrAppendIncompatible indicates the data being appended does not match
	// the word size, order, or trailing dimensions of the existing file.
	ErrAppendIncompatible = errors.New("cnpy: append incompatible with existing data")

	// ErrSizeMismatch indicates a data buffer whose length disagrees with
	// the element width times the product of the shape.
	ErrSizeMismatch = errors.New("cnpy: data length does not match shape")

	// ErrDtype indicates a Go type with no npy format-code mapping, or a
	// typed view requested with the wrong element width.
	ErrDtype = errors.New("cnpy: unsupported or mismatched dtype")
)
