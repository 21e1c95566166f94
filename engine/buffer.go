package engine

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/uniplex/uniplex/ledger"
)

var (
	// ErrNotVector is returned by structural mutations on buffers that are
	// not one-dimensional.
	ErrNotVector = errors.New("buffer is not one-dimensional")

	// ErrOutOfBounds is returned when a shrink would remove more elements
	// than the buffer holds.
	ErrOutOfBounds = errors.New("fewer elements than requested")
)

// ElemKind describes how a buffer stores its elements.
type ElemKind int

const (
	// ElemBits elements have a fixed layout stored inline.
	ElemBits ElemKind = iota
	// ElemManaged elements are references to engine-managed values.
	ElemManaged
	// ElemUnion elements are tagged unions of fixed-layout variants.
	ElemUnion
)

// String returns the kind name.
func (k ElemKind) String() string {
	switch k {
	case ElemBits:
		return "bits"
	case ElemManaged:
		return "managed"
	case ElemUnion:
		return "union"
	default:
		return fmt.Sprintf("ElemKind(%d)", int(k))
	}
}

// Buffer is a memory region handed out by the engine. The engine gives no
// aliasing guarantees for its content; access goes through tracked views
// which register the buffer's data range with the borrow ledger.
type Buffer struct {
	data     []byte
	elemType reflect.Type
	elemSize int
	kind     ElemKind
	dims     []int

	refs     []Value
	tags     []uint8
	variants []reflect.Type
}

// NewBuffer allocates a buffer of fixed-layout elements of type elemType with
// the given dimensions.
func NewBuffer(elemType reflect.Type, dims ...int) *Buffer {
	size := int(elemType.Size())
	b := &Buffer{
		elemType: elemType,
		elemSize: size,
		kind:     ElemBits,
		dims:     append([]int(nil), dims...),
	}
	b.data = make([]byte, size*b.Len())
	return b
}

// NewManagedBuffer allocates a buffer whose elements are references to
// engine-managed values.
func NewManagedBuffer(dims ...int) *Buffer {
	b := &Buffer{
		elemSize: int(unsafe.Sizeof(uintptr(0))),
		kind:     ElemManaged,
		dims:     append([]int(nil), dims...),
	}
	b.data = make([]byte, b.elemSize*b.Len())
	b.refs = make([]Value, b.Len())
	return b
}

// NewUnionBuffer allocates a buffer of tagged-union elements. Each element
// stores one of the variant layouts plus a tag selecting it; the element size
// is that of the widest variant.
func NewUnionBuffer(variants []reflect.Type, dims ...int) *Buffer {
	size := 0
	for _, v := range variants {
		if s := int(v.Size()); s > size {
			size = s
		}
	}
	b := &Buffer{
		elemSize: size,
		kind:     ElemUnion,
		dims:     append([]int(nil), dims...),
		variants: append([]reflect.Type(nil), variants...),
	}
	b.data = make([]byte, size*b.Len())
	b.tags = make([]uint8, b.Len())
	return b
}

// Kind returns how elements are stored.
func (b *Buffer) Kind() ElemKind { return b.kind }

// ElemType returns the declared element layout, nil for managed and union
// buffers.
func (b *Buffer) ElemType() reflect.Type { return b.elemType }

// ElemSize returns the per-element byte size.
func (b *Buffer) ElemSize() int { return b.elemSize }

// Dims returns the buffer dimensions.
func (b *Buffer) Dims() []int { return append([]int(nil), b.dims...) }

// Len returns the total element count.
func (b *Buffer) Len() int {
	n := 1
	for _, d := range b.dims {
		n *= d
	}
	if len(b.dims) == 0 {
		n = 0
	}
	return n
}

// DataRange returns the tracked span of the buffer's backing memory.
func (b *Buffer) DataRange() ledger.Range {
	if len(b.data) == 0 {
		p := uintptr(unsafe.Pointer(b))
		return ledger.Range{Start: p, End: p}
	}
	p := uintptr(unsafe.Pointer(&b.data[0]))
	return ledger.Range{Start: p, End: p + uintptr(len(b.data))}
}

// Bytes exposes the backing memory. Callers must hold a live borrow through
// the ledger; tracked views are the only intended callers.
func (b *Buffer) Bytes() []byte { return b.data }

// Ref returns the i-th managed element.
func (b *Buffer) Ref(i int) Value { return b.refs[i] }

// SetRef replaces the i-th managed element.
func (b *Buffer) SetRef(i int, v Value) { b.refs[i] = v }

// Tag returns the variant tag of the i-th union element.
func (b *Buffer) Tag(i int) uint8 { return b.tags[i] }

// SetTag selects the variant of the i-th union element.
func (b *Buffer) SetTag(i int, tag uint8) { b.tags[i] = tag }

// Variants returns the union variant layouts.
func (b *Buffer) Variants() []reflect.Type {
	return append([]reflect.Type(nil), b.variants...)
}

// GrowEnd appends room for inc elements at the end of a one-dimensional
// buffer. The backing memory may move; callers holding a borrow must retarget
// it through the ledger.
func (b *Buffer) GrowEnd(inc int) error {
	if len(b.dims) != 1 {
		return ErrNotVector
	}
	b.data = append(b.data, make([]byte, inc*b.elemSize)...)
	if b.kind == ElemManaged {
		b.refs = append(b.refs, make([]Value, inc)...)
	}
	if b.kind == ElemUnion {
		b.tags = append(b.tags, make([]uint8, inc)...)
	}
	b.dims[0] += inc
	return nil
}

// DelEnd removes dec elements from the end of a one-dimensional buffer.
func (b *Buffer) DelEnd(dec int) error {
	if len(b.dims) != 1 {
		return ErrNotVector
	}
	if dec > b.dims[0] {
		return ErrOutOfBounds
	}
	b.data = b.data[:(b.dims[0]-dec)*b.elemSize]
	if b.kind == ElemManaged {
		b.refs = b.refs[:b.dims[0]-dec]
	}
	if b.kind == ElemUnion {
		b.tags = b.tags[:b.dims[0]-dec]
	}
	b.dims[0] -= dec
	return nil
}

// GrowBegin prepends room for inc elements at the start of a one-dimensional
// buffer.
func (b *Buffer) GrowBegin(inc int) error {
	if len(b.dims) != 1 {
		return ErrNotVector
	}
	b.data = append(make([]byte, inc*b.elemSize), b.data...)
	if b.kind == ElemManaged {
		b.refs = append(make([]Value, inc), b.refs...)
	}
	if b.kind == ElemUnion {
		b.tags = append(make([]uint8, inc), b.tags...)
	}
	b.dims[0] += inc
	return nil
}

// DelBegin removes dec elements from the start of a one-dimensional buffer.
func (b *Buffer) DelBegin(dec int) error {
	if len(b.dims) != 1 {
		return ErrNotVector
	}
	if dec > b.dims[0] {
		return ErrOutOfBounds
	}
	b.data = b.data[dec*b.elemSize:]
	if b.kind == ElemManaged {
		b.refs = b.refs[dec:]
	}
	if b.kind == ElemUnion {
		b.tags = b.tags[dec:]
	}
	b.dims[0] -= dec
	return nil
}
