package cnpy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDtypeOf(t *testing.T) {
	assert.Equal(t, Dtype{Kind: KindFloat, Size: 8, Endian: LittleEndian}, DtypeOf[float64]())
	assert.Equal(t, Dtype{Kind: KindFloat, Size: 4, Endian: LittleEndian}, DtypeOf[float32]())
	assert.Equal(t, Dtype{Kind: KindInt, Size: 4, Endian: LittleEndian}, DtypeOf[int32]())
	assert.Equal(t, Dtype{Kind: KindUint, Size: 1, Endian: LittleEndian}, DtypeOf[uint8]())
	assert.Equal(t, Dtype{Kind: KindBool, Size: 1, Endian: LittleEndian}, DtypeOf[bool]())
	assert.Equal(t, Dtype{Kind: KindComplex, Size: 8, Endian: LittleEndian}, DtypeOf[complex64]())

	// Second lookup hits the cache and must agree.
	assert.Equal(t, DtypeOf[float64](), DtypeOf[float64]())
}

func TestDtypeString(t *testing.T) {
	assert.Equal(t, "<f8", Dtype{Kind: KindFloat, Size: 8, Endian: LittleEndian}.String())
	assert.Equal(t, "|u1", Dtype{Kind: KindUint, Size: 1, Endian: NoEndian}.String())
}

func TestAsSlice(t *testing.T) {
	arr := NewArray([]int{3}, 4, false)
	view, err := AsSlice[int32](arr)
	require.NoError(t, err)
	require.Len(t, view, 3)

	// The view aliases the array's buffer.
	view[1] = 0x01020304
	assert.Equal(t, []byte{4, 3, 2, 1}, arr.Data[4:8])
}

func TestAsSliceWordSizeMismatch(t *testing.T) {
	arr := NewArray([]int{3}, 8, false)
	_, err := AsSlice[int32](arr)
	assert.ErrorIs(t, err, ErrDtype)
}

func TestValuesCopies(t *testing.T) {
	arr := NewArray([]int{2}, 2, false)
	arr.Data[0] = 0xFF

	vals, err := Values[uint16](arr)
	require.NoError(t, err)
	require.Equal(t, []uint16{0xFF, 0}, vals)

	vals[0] = 0
	assert.Equal(t, byte(0xFF), arr.Data[0], "mutating the copy must not touch the array")
}

func TestArrayNumElements(t *testing.T) {
	assert.Equal(t, 1, Array{}.NumElements(), "empty shape is a scalar")
	assert.Equal(t, 12, Array{Shape: []int{3, 4}}.NumElements())
	assert.Equal(t, 0, Array{Shape: []int{3, 0}}.NumElements())
}
