package cnpy

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/exp/constraints"
)

// Kind codes used in the descr field of the header dictionary.
const (
	KindFloat   = 'f'
	KindInt     = 'i'
	KindUint    = 'u'
	KindBool    = 'b'
	KindComplex = 'c'
)

// Endianness markers accepted in the descr field. Big-endian ('>') is not
// supported.
const (
	LittleEndian = '<'
	NoEndian     = '|' // single-byte types have no byte order
)

// Dtype describes the element type of an array the way the header dictionary
// does: a one-letter kind code, the element width in bytes, and an
// endianness marker.
type Dtype struct {
	Kind   byte
	Size   int
	Endian byte
}

// String renders the descr value, e.g. "<f8".
func (d Dtype) String() string {
	return fmt.Sprintf("%c%c%d", d.Endian, d.Kind, d.Size)
}

// Element is the set of Go element types with an npy format-code mapping.
type Element interface {
	~bool | constraints.Integer | constraints.Float | constraints.Complex
}

// dtypeCache avoids repeating the reflection walk for every save of the same
// element type. A concurrent map keeps the generic helpers safe to call from
// multiple goroutines.
var dtypeCache = xsync.NewMap[reflect.Type, Dtype]()

// DtypeOf returns the Dtype for a Go element type, e.g. float32 -> <f4.
func DtypeOf[T Element]() Dtype {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if dt, ok := dtypeCache.Load(t); ok {
		return dt
	}
	dt := dtypeOfReflect(t)
	dtypeCache.Store(t, dt)
	return dt
}

func dtypeOfReflect(t reflect.Type) Dtype {
	dt := Dtype{Size: int(t.Size()), Endian: LittleEndian}
	switch t.Kind() {
	case reflect.Bool:
		dt.Kind = KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dt.Kind = KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		dt.Kind = KindUint
	case reflect.Float32, reflect.Float64:
		dt.Kind = KindFloat
	case reflect.Complex64, reflect.Complex128:
		dt.Kind = KindComplex
	default:
		// Unreachable for types satisfying Element.
		panic(fmt.Sprintf("cnpy: no format code for Go type %v", t))
	}
	return dt
}

// AsSlice reinterprets the element buffer of a as a []T without copying.
// The returned slice aliases a.Data: it is valid as long as the Array and
// must not be mutated while other handles read the buffer.
func AsSlice[T Element](a Array) ([]T, error) {
	var zero T
	width := int(unsafe.Sizeof(zero))
	if width != a.WordSize {
		return nil, fmt.Errorf("%w: array word size %d, element size %d", ErrDtype, a.WordSize, width)
	}
	n := a.NumElements()
	if len(a.Data) != n*width {
		return nil, fmt.Errorf("%w: %d data bytes for %d elements of width %d", ErrSizeMismatch, len(a.Data), n, width)
	}
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&a.Data[0])), n), nil
}

// Values returns a copy of the element buffer of a as a []T.
func Values[T Element](a Array) ([]T, error) {
	view, err := AsSlice[T](a)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(view))
	copy(out, view)
	return out, nil
}

// sliceBytes views the raw bytes of a typed slice. The view is only valid
// while data is reachable.
func sliceBytes[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	n := len(data) * int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), n)
}
