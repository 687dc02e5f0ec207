package cnpy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpySaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.npy")
	data := []float64{1.5, -2.25, 3, 4, 5, 6}

	require.NoError(t, SaveNpySlice(path, data, []int{2, 3}, Create))

	arr, err := LoadNpy(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, arr.Shape)
	assert.Equal(t, 8, arr.WordSize)
	assert.False(t, arr.FortranOrder)

	got, err := Values[float64](arr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestNpyScalar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scalar.npy")
	require.NoError(t, SaveNpySlice(path, []float64{42.5}, nil, Create))

	arr, err := LoadNpy(path)
	require.NoError(t, err)
	assert.Empty(t, arr.Shape)
	assert.Equal(t, 1, arr.NumElements())

	got, err := Values[float64](arr)
	require.NoError(t, err)
	assert.Equal(t, []float64{42.5}, got)
}

func TestNpyZeroLengthDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.npy")
	require.NoError(t, SaveNpySlice(path, []int32(nil), []int{0, 4}, Create))

	arr, err := LoadNpy(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, arr.Shape)
	assert.Zero(t, arr.NumBytes())
	assert.Empty(t, arr.Data)
}

func TestNpyAppend(t *testing.T) {
	first := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	second := []int32{100, 101, 102, 103, 104, 105, 106, 107}

	t.Run("matching trailing dimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grow.npy")
		require.NoError(t, SaveNpySlice(path, first, []int{3, 4}, Create))
		require.NoError(t, SaveNpySlice(path, second, []int{2, 4}, Append))

		arr, err := LoadNpy(path)
		require.NoError(t, err)
		assert.Equal(t, []int{5, 4}, arr.Shape)

		got, err := Values[int32](arr)
		require.NoError(t, err)
		assert.Equal(t, first, got[:12], "original rows must be untouched")
		assert.Equal(t, second, got[12:], "appended rows follow the original data")
	})

	t.Run("mismatched trailing dimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grow.npy")
		require.NoError(t, SaveNpySlice(path, first, []int{3, 4}, Create))

		err := SaveNpySlice(path, make([]int32, 10), []int{2, 5}, Append)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAppendIncompatible)
		assert.Contains(t, err.Error(), "dimension 1")
	})

	t.Run("mismatched word size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grow.npy")
		require.NoError(t, SaveNpySlice(path, first, []int{3, 4}, Create))

		err := SaveNpySlice(path, make([]float64, 8), []int{2, 4}, Append)
		assert.ErrorIs(t, err, ErrAppendIncompatible)
	})

	t.Run("mismatched rank", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grow.npy")
		require.NoError(t, SaveNpySlice(path, first, []int{3, 4}, Create))

		err := SaveNpySlice(path, make([]int32, 8), []int{2, 2, 2}, Append)
		assert.ErrorIs(t, err, ErrAppendIncompatible)
	})

	t.Run("fortran-ordered target", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fortran.npy")
		hdr := makeV1Header("{'descr': '<i4', 'fortran_order': True, 'shape': (3, 4), }")
		require.NoError(t, os.WriteFile(path, append(hdr, make([]byte, 48)...), 0o644))

		err := SaveNpySlice(path, make([]int32, 8), []int{2, 4}, Append)
		assert.ErrorIs(t, err, ErrAppendIncompatible)
	})

	t.Run("missing target behaves like create", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fresh.npy")
		require.NoError(t, SaveNpySlice(path, second, []int{2, 4}, Append))

		arr, err := LoadNpy(path)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4}, arr.Shape)
	})
}

func TestNpyTruncatedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.npy")
	require.NoError(t, SaveNpySlice(path, []uint16{1, 2, 3, 4}, []int{4}, Create))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	_, err = LoadNpy(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedPayload)
}

func TestNpySizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.npy")
	dt := Dtype{Kind: KindFloat, Size: 8, Endian: LittleEndian}

	err := SaveNpy(path, dt, []int{3}, make([]byte, 8), Create)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestReadNpyFromStream(t *testing.T) {
	dt := Dtype{Kind: KindUint, Size: 1, Endian: LittleEndian}
	payload := []byte{9, 8, 7, 6, 5, 4}
	stream := append(EncodeHeader(dt, []int{2, 3}), payload...)

	arr, err := ReadNpy(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, arr.Shape)
	assert.Equal(t, payload, arr.Data)
}
