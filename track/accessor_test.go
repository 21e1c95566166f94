package track

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uniplex/uniplex/engine"
)

func TestBitsAccessor(t *testing.T) {
	buf := engine.NewBuffer(reflect.TypeOf(int64(0)), 4)

	m, err := TrackMut(buf)
	assert.NoError(t, err)
	defer m.Release()

	w, err := BitsMut[int64](m)
	assert.NoError(t, err)
	for i := 0; i < w.Len(); i++ {
		w.Set(i, int64(i*10))
	}
	assert.Equal(t, []int64{0, 10, 20, 30}, w.Slice())
	assert.Equal(t, int64(20), w.Get(2))
}

func TestBitsAccessorTypeMismatch(t *testing.T) {
	buf := engine.NewBuffer(reflect.TypeOf(int64(0)), 4)

	v, err := Track(buf)
	assert.NoError(t, err)
	defer v.Release()

	_, err = Bits[int32](v)
	assert.ErrorIs(t, err, ErrLayout, "element type must match exactly")

	_, err = Bits[uint64](v)
	assert.ErrorIs(t, err, ErrLayout, "same size is not enough without a conversion")
}

func TestBitsAccessorKindMismatch(t *testing.T) {
	buf := engine.NewManagedBuffer(4)

	v, err := Track(buf)
	assert.NoError(t, err)
	defer v.Release()

	_, err = Bits[uintptr](v)
	assert.ErrorIs(t, err, ErrLayout)
}

func TestManagedAccessor(t *testing.T) {
	buf := engine.NewManagedBuffer(3)

	m, err := TrackMut(buf)
	assert.NoError(t, err)
	defer m.Release()

	w, err := ManagedMut(m)
	assert.NoError(t, err)
	w.Set(1, engine.NewValue("ref"))
	assert.Equal(t, "ref", w.Get(1).Interface())
	assert.True(t, w.Get(0).IsNil())
	assert.Equal(t, 3, w.Len())

	_, err = Managed(m.View)
	assert.NoError(t, err)
}

func TestUnionAccessor(t *testing.T) {
	variants := []reflect.Type{reflect.TypeOf(int8(0)), reflect.TypeOf(int32(0))}
	buf := engine.NewUnionBuffer(variants, 2)

	m, err := TrackMut(buf)
	assert.NoError(t, err)
	defer m.Release()

	w, err := UnionMut(m)
	assert.NoError(t, err)

	assert.NoError(t, w.Set(0, 1, []byte{1, 2, 3, 4}))
	tag, payload := w.Get(0)
	assert.Equal(t, uint8(1), tag)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)

	// Switching to a narrower variant zeroes the rest of the element.
	assert.NoError(t, w.Set(0, 0, []byte{9}))
	tag, payload = w.Get(0)
	assert.Equal(t, uint8(0), tag)
	assert.Equal(t, []byte{9}, payload)

	err = w.Set(0, 5, []byte{1})
	assert.ErrorIs(t, err, ErrLayout, "tag out of range")

	err = w.Set(0, 1, []byte{1, 2})
	assert.ErrorIs(t, err, ErrLayout, "payload size mismatch")
}

func TestRawAccessor(t *testing.T) {
	buf := engine.NewBuffer(reflect.TypeOf(uint16(0)), 3)

	m, err := TrackMut(buf)
	assert.NoError(t, err)
	defer m.Release()

	w := RawMut(m)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 2, w.ElemSize())

	assert.NoError(t, w.SetElem(1, []byte{0xaa, 0xbb}))
	assert.Equal(t, []byte{0xaa, 0xbb}, w.Elem(1))
	assert.Equal(t, []byte{0, 0}, w.Elem(0))

	assert.ErrorIs(t, w.SetElem(0, []byte{1}), ErrLayout)
}
