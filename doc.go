// Package cnpy reads and writes numeric arrays in the NumPy binary formats:
// single arrays as .npy files and named collections as .npz archives.
//
// The package is organised into focused files:
//
//	array.go  – Array, the in-memory form of one decoded array
//	dtype.go  – element type descriptions and typed slice helpers
//	reader.go – little-endian field reader with sticky error tracking
//	writer.go – little-endian field writer with sticky error tracking
//	header.go – npy header dictionary parsing and serialization
//	npy.go    – standalone .npy load/save, including in-place append
//	npz.go    – .npz archive load/save, including in-place append
//
// Both save paths support an append mode that grows an existing file in
// place: a .npy file along its leading dimension, a .npz archive by one
// entry. Appending is not atomic; a crash mid-append can leave the target
// inconsistent. Callers needing atomicity should write to a temporary path
// and rename.
//
// The codec only produces little-endian, row-major, uncompressed output.
// It can read deflate-compressed archive entries, but never writes them.
package cnpy
