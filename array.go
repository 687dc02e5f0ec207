package cnpy

// Array is the in-memory form of one npy array: its shape, the width of one
// element in bytes, the storage order flag, and the raw element bytes.
//
// Array is a cheap value: copying one copies the slice header, not the
// element bytes, so several handles may share the same backing buffer. The
// buffer lives as long as the longest-lived handle. Handles are not safe to
// mutate while another handle reads the same buffer; every decode operation
// allocates a fresh buffer, so arrays from independent loads never alias.
type Array struct {
	Shape        []int
	WordSize     int
	FortranOrder bool
	Data         []byte
}

// NewArray allocates an Array with a zeroed element buffer sized
// wordSize * product(shape).
func NewArray(shape []int, wordSize int, fortranOrder bool) Array {
	a := Array{
		Shape:        shape,
		WordSize:     wordSize,
		FortranOrder: fortranOrder,
	}
	a.Data = make([]byte, a.NumBytes())
	return a
}

// NumElements returns the product of the shape dimensions. An empty shape is
// a scalar and counts as one element.
func (a Array) NumElements() int { return numElements(a.Shape) }

// NumBytes returns the size of the element buffer implied by the shape and
// word size.
func (a Array) NumBytes() int { return a.NumElements() * a.WordSize }

func numElements(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}
