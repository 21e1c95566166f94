package track

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/uniplex/uniplex/engine"
)

// Bits returns a read-only accessor for fixed-layout elements of type T. It
// fails with ErrLayout when the guard's element type is not exactly T.
func Bits[T any](v *View) (*BitsAccessor[T], error) {
	if err := validateBits[T](v); err != nil {
		return nil, err
	}
	return &BitsAccessor[T]{buf: v.buf}, nil
}

// BitsMut returns a mutable accessor for fixed-layout elements of type T.
func BitsMut[T any](m *ViewMut) (*BitsMutAccessor[T], error) {
	if err := validateBits[T](m.View); err != nil {
		return nil, err
	}
	return &BitsMutAccessor[T]{BitsAccessor[T]{buf: m.buf}}, nil
}

func validateBits[T any](v *View) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if v.buf.Kind() != engine.ElemBits {
		return fmt.Errorf("bits accessor for %s buffer: %w", v.buf.Kind(), ErrLayout)
	}
	if v.elemType != t {
		return fmt.Errorf("buffer stores %s elements, not %s: %w", v.elemType, t, ErrLayout)
	}
	return nil
}

// BitsAccessor reads fixed-layout elements.
type BitsAccessor[T any] struct {
	buf *engine.Buffer
}

// Len returns the element count.
func (a *BitsAccessor[T]) Len() int { return a.buf.Len() }

// Get returns the i-th element.
func (a *BitsAccessor[T]) Get(i int) T {
	return a.slice()[i]
}

// Slice returns the elements as a slice. The slice aliases the buffer and
// must not be written through a read-only accessor.
func (a *BitsAccessor[T]) Slice() []T { return a.slice() }

func (a *BitsAccessor[T]) slice() []T {
	data := a.buf.Bytes()
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), a.buf.Len())
}

// BitsMutAccessor reads and writes fixed-layout elements.
type BitsMutAccessor[T any] struct {
	BitsAccessor[T]
}

// Set replaces the i-th element.
func (a *BitsMutAccessor[T]) Set(i int, v T) {
	a.slice()[i] = v
}

// Managed returns a read-only accessor for buffers of engine-managed
// elements.
func Managed(v *View) (*ManagedAccessor, error) {
	if v.buf.Kind() != engine.ElemManaged {
		return nil, fmt.Errorf("managed accessor for %s buffer: %w", v.buf.Kind(), ErrLayout)
	}
	return &ManagedAccessor{buf: v.buf}, nil
}

// ManagedMut returns a mutable accessor for buffers of engine-managed
// elements.
func ManagedMut(m *ViewMut) (*ManagedMutAccessor, error) {
	if m.buf.Kind() != engine.ElemManaged {
		return nil, fmt.Errorf("managed accessor for %s buffer: %w", m.buf.Kind(), ErrLayout)
	}
	return &ManagedMutAccessor{ManagedAccessor{buf: m.buf}}, nil
}

// ManagedAccessor reads engine-managed elements.
type ManagedAccessor struct {
	buf *engine.Buffer
}

// Len returns the element count.
func (a *ManagedAccessor) Len() int { return a.buf.Len() }

// Get returns the i-th element reference.
func (a *ManagedAccessor) Get(i int) engine.Value { return a.buf.Ref(i) }

// ManagedMutAccessor reads and writes engine-managed elements.
type ManagedMutAccessor struct {
	ManagedAccessor
}

// Set replaces the i-th element reference.
func (a *ManagedMutAccessor) Set(i int, v engine.Value) { a.buf.SetRef(i, v) }

// Union returns a read-only accessor for tagged-union elements.
func Union(v *View) (*UnionAccessor, error) {
	if v.buf.Kind() != engine.ElemUnion {
		return nil, fmt.Errorf("union accessor for %s buffer: %w", v.buf.Kind(), ErrLayout)
	}
	return &UnionAccessor{buf: v.buf}, nil
}

// UnionMut returns a mutable accessor for tagged-union elements.
func UnionMut(m *ViewMut) (*UnionMutAccessor, error) {
	if m.buf.Kind() != engine.ElemUnion {
		return nil, fmt.Errorf("union accessor for %s buffer: %w", m.buf.Kind(), ErrLayout)
	}
	return &UnionMutAccessor{UnionAccessor{buf: m.buf}}, nil
}

// UnionAccessor reads tagged-union elements.
type UnionAccessor struct {
	buf *engine.Buffer
}

// Len returns the element count.
func (a *UnionAccessor) Len() int { return a.buf.Len() }

// Get returns the tag and a copy of the payload of the i-th element.
func (a *UnionAccessor) Get(i int) (uint8, []byte) {
	tag := a.buf.Tag(i)
	size := int(a.buf.Variants()[tag].Size())
	payload := make([]byte, size)
	copy(payload, a.payload(i))
	return tag, payload
}

func (a *UnionAccessor) payload(i int) []byte {
	es := a.buf.ElemSize()
	return a.buf.Bytes()[i*es : (i+1)*es]
}

// UnionMutAccessor reads and writes tagged-union elements.
type UnionMutAccessor struct {
	UnionAccessor
}

// Set stores a variant into the i-th element. The payload must have the exact
// size of the selected variant; the remainder of the element is zeroed.
func (a *UnionMutAccessor) Set(i int, tag uint8, payload []byte) error {
	variants := a.buf.Variants()
	if int(tag) >= len(variants) {
		return fmt.Errorf("union tag %d out of range: %w", tag, ErrLayout)
	}
	if len(payload) != int(variants[tag].Size()) {
		return fmt.Errorf("payload size %d does not match variant %s: %w", len(payload), variants[tag], ErrLayout)
	}
	dst := a.payload(i)
	n := copy(dst, payload)
	for j := n; j < len(dst); j++ {
		dst[j] = 0
	}
	a.buf.SetTag(i, tag)
	return nil
}

// Raw returns a type-erased accessor. It makes no assumption about the
// element layout and never fails.
func Raw(v *View) *RawAccessor {
	return &RawAccessor{buf: v.buf}
}

// RawMut returns a type-erased mutable accessor.
func RawMut(m *ViewMut) *RawMutAccessor {
	return &RawMutAccessor{RawAccessor{buf: m.buf}}
}

// RawAccessor exposes the buffer's raw bytes.
type RawAccessor struct {
	buf *engine.Buffer
}

// Len returns the element count.
func (a *RawAccessor) Len() int { return a.buf.Len() }

// ElemSize returns the per-element byte size.
func (a *RawAccessor) ElemSize() int { return a.buf.ElemSize() }

// Elem returns a copy of the i-th element's bytes.
func (a *RawAccessor) Elem(i int) []byte {
	es := a.buf.ElemSize()
	out := make([]byte, es)
	copy(out, a.buf.Bytes()[i*es:(i+1)*es])
	return out
}

// RawMutAccessor exposes the buffer's raw bytes for writing.
type RawMutAccessor struct {
	RawAccessor
}

// SetElem overwrites the i-th element's bytes.
func (a *RawMutAccessor) SetElem(i int, data []byte) error {
	es := a.buf.ElemSize()
	if len(data) != es {
		return fmt.Errorf("element size %d, got %d bytes: %w", es, len(data), ErrLayout)
	}
	copy(a.buf.Bytes()[i*es:(i+1)*es], data)
	return nil
}
