// Package track provides guards over engine buffers. A guard is only
// constructible through a successful ledger borrow, so the existence of a
// guard is proof of a live borrow; releasing it always returns the borrow,
// including on early-return and error paths.
package track

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/ledger"
)

// ErrLayout is returned when a requested accessor or reinterpretation is
// incompatible with the buffer's declared element layout. This check is
// independent of the borrow check.
var ErrLayout = errors.New("incompatible element layout")

// View is a shared, read-only guard over a buffer. Any number of Views over
// the same buffer may coexist; a View excludes exclusive access.
type View struct {
	buf      *engine.Buffer
	elemType reflect.Type
	owned    bool
	released bool
}

// Track borrows buf shared and returns a read-only guard. Fails with
// ledger.ErrBorrowedExclusively while a ViewMut over the buffer exists.
func Track(buf *engine.Buffer) (*View, error) {
	if err := ledger.TryBorrow(buf.DataRange()); err != nil {
		return nil, err
	}
	return &View{buf: buf, elemType: buf.ElemType()}, nil
}

// Buffer returns the underlying buffer.
func (v *View) Buffer() *engine.Buffer { return v.buf }

// Dims returns the buffer's dimensions.
func (v *View) Dims() []int { return v.buf.Dims() }

// Len returns the buffer's total element count.
func (v *View) Len() int { return v.buf.Len() }

// Clone duplicates a shared guard, incrementing the borrow's refcount. The
// element layout is not re-validated; the clone sees the same view type.
func (v *View) Clone() *View {
	if v.owned {
		panic("track: clone of exclusive view")
	}
	if v.released {
		panic("track: clone of released view")
	}
	ledger.CloneShared(v.buf.DataRange())
	return &View{buf: v.buf, elemType: v.elemType}
}

// Release returns the borrow. Releasing twice is a no-op; the ledger record
// is removed or decremented exactly once per guard.
func (v *View) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.owned {
		ledger.UnborrowOwned(v.buf.DataRange())
		return
	}
	ledger.UnborrowShared(v.buf.DataRange())
}

// forget marks the guard released without returning the borrow. Used by
// reinterpreting conversions that hand the borrow to a new guard.
func (v *View) forget() {
	v.released = true
}

// ViewMut is an exclusive guard over a buffer. While it exists no other view,
// shared or exclusive, can be created for the buffer.
type ViewMut struct {
	*View
}

// TrackMut borrows buf exclusively and returns a mutable guard. Fails with
// ledger.ErrBorrowed while any other view over the buffer exists.
func TrackMut(buf *engine.Buffer) (*ViewMut, error) {
	if err := ledger.TryBorrowMut(buf.DataRange()); err != nil {
		return nil, err
	}
	return &ViewMut{View: &View{buf: buf, elemType: buf.ElemType(), owned: true}}, nil
}

// GrowEnd appends room for inc elements at the end of a one-dimensional
// buffer and atomically retargets the exclusive borrow to the new span. If
// the resize fails the original borrow record is untouched.
func (m *ViewMut) GrowEnd(inc int) error {
	return m.resize(func() error { return m.buf.GrowEnd(inc) })
}

// DelEnd removes dec elements from the end of a one-dimensional buffer,
// retargeting the borrow as GrowEnd does.
func (m *ViewMut) DelEnd(dec int) error {
	return m.resize(func() error { return m.buf.DelEnd(dec) })
}

// GrowBegin prepends room for inc elements at the start of a one-dimensional
// buffer, retargeting the borrow as GrowEnd does.
func (m *ViewMut) GrowBegin(inc int) error {
	return m.resize(func() error { return m.buf.GrowBegin(inc) })
}

// DelBegin removes dec elements from the start of a one-dimensional buffer,
// retargeting the borrow as GrowEnd does.
func (m *ViewMut) DelBegin(dec int) error {
	return m.resize(func() error { return m.buf.DelBegin(dec) })
}

func (m *ViewMut) resize(apply func() error) error {
	old := m.buf.DataRange()
	if err := apply(); err != nil {
		return err
	}
	ledger.ReplaceBorrowMut(old, m.buf.DataRange())
	return nil
}

// AsTyped reinterprets a shared guard's element type as T. The conversion is
// checked: it fails with ErrLayout when T does not match the buffer's element
// size or the buffer does not store fixed-layout elements, leaving the
// original guard valid. On success the borrow moves to the returned guard and
// the original is forgotten, so no double release can occur.
func AsTyped[T any](v *View) (*View, error) {
	t, err := typedTarget[T](v)
	if err != nil {
		return nil, err
	}
	nv := &View{buf: v.buf, elemType: t, owned: v.owned}
	v.forget()
	return nv, nil
}

// AsTypedUnchecked reinterprets a shared guard's element type as T without
// validating the layout. The caller must have proven compatibility out of
// band.
func AsTypedUnchecked[T any](v *View) *View {
	nv := &View{buf: v.buf, elemType: reflect.TypeOf((*T)(nil)).Elem(), owned: v.owned}
	v.forget()
	return nv
}

// AsTypedMut reinterprets an exclusive guard's element type as T, with the
// same checks and borrow handover as AsTyped.
func AsTypedMut[T any](m *ViewMut) (*ViewMut, error) {
	t, err := typedTarget[T](m.View)
	if err != nil {
		return nil, err
	}
	nv := &ViewMut{View: &View{buf: m.buf, elemType: t, owned: true}}
	m.forget()
	return nv, nil
}

// AsTypedMutUnchecked reinterprets an exclusive guard's element type as T
// without validating the layout.
func AsTypedMutUnchecked[T any](m *ViewMut) *ViewMut {
	nv := &ViewMut{View: &View{buf: m.buf, elemType: reflect.TypeOf((*T)(nil)).Elem(), owned: true}}
	m.forget()
	return nv
}

func typedTarget[T any](v *View) (reflect.Type, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if v.buf.Kind() != engine.ElemBits {
		return nil, fmt.Errorf("cannot reinterpret %s buffer as %s: %w", v.buf.Kind(), t, ErrLayout)
	}
	if int(t.Size()) != v.buf.ElemSize() {
		return nil, fmt.Errorf("element size %d does not fit %s: %w", v.buf.ElemSize(), t, ErrLayout)
	}
	return t, nil
}
