package engine

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer(reflect.TypeOf(int64(0)), 3, 4)
	assert.Equal(t, ElemBits, b.Kind())
	assert.Equal(t, 8, b.ElemSize())
	assert.Equal(t, []int{3, 4}, b.Dims())
	assert.Equal(t, 12, b.Len())
	assert.Equal(t, 96, len(b.Bytes()))

	r := b.DataRange()
	assert.Equal(t, uintptr(96), r.End-r.Start)
}

func TestNewManagedBuffer(t *testing.T) {
	b := NewManagedBuffer(4)
	assert.Equal(t, ElemManaged, b.Kind())
	assert.Nil(t, b.ElemType())
	assert.Equal(t, 4, b.Len())

	v := NewValue("payload")
	b.SetRef(2, v)
	assert.Equal(t, "payload", b.Ref(2).Interface())
	assert.True(t, b.Ref(0).IsNil())
}

func TestNewUnionBuffer(t *testing.T) {
	variants := []reflect.Type{reflect.TypeOf(int8(0)), reflect.TypeOf(int64(0))}
	b := NewUnionBuffer(variants, 5)
	assert.Equal(t, ElemUnion, b.Kind())
	assert.Equal(t, 8, b.ElemSize(), "element size is the widest variant")
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, uint8(0), b.Tag(3))
	b.SetTag(3, 1)
	assert.Equal(t, uint8(1), b.Tag(3))
}

func TestGrowAndShrink(t *testing.T) {
	b := NewBuffer(reflect.TypeOf(int32(0)), 3)
	copy(b.Bytes(), []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0})

	assert.NoError(t, b.GrowEnd(2))
	assert.Equal(t, []int{5}, b.Dims())
	assert.Equal(t, byte(1), b.Bytes()[0], "existing content preserved")

	assert.NoError(t, b.DelEnd(3))
	assert.Equal(t, []int{2}, b.Dims())

	assert.NoError(t, b.GrowBegin(1))
	assert.Equal(t, []int{3}, b.Dims())
	assert.Equal(t, byte(0), b.Bytes()[0], "prepended element zeroed")
	assert.Equal(t, byte(1), b.Bytes()[4], "old head shifted")

	assert.NoError(t, b.DelBegin(1))
	assert.Equal(t, []int{2}, b.Dims())
	assert.Equal(t, byte(1), b.Bytes()[0])
}

func TestResizeErrors(t *testing.T) {
	matrix := NewBuffer(reflect.TypeOf(int32(0)), 2, 2)
	assert.ErrorIs(t, matrix.GrowEnd(1), ErrNotVector)
	assert.ErrorIs(t, matrix.DelEnd(1), ErrNotVector)
	assert.ErrorIs(t, matrix.GrowBegin(1), ErrNotVector)
	assert.ErrorIs(t, matrix.DelBegin(1), ErrNotVector)

	vec := NewBuffer(reflect.TypeOf(int32(0)), 2)
	assert.ErrorIs(t, vec.DelEnd(3), ErrOutOfBounds)
	assert.ErrorIs(t, vec.DelBegin(3), ErrOutOfBounds)
}

func TestManagedResize(t *testing.T) {
	b := NewManagedBuffer(2)
	b.SetRef(0, NewValue(1))
	b.SetRef(1, NewValue(2))

	assert.NoError(t, b.GrowEnd(1))
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 1, b.Ref(0).Interface())
	assert.True(t, b.Ref(2).IsNil())

	assert.NoError(t, b.DelBegin(1))
	assert.Equal(t, 2, b.Ref(0).Interface())
}
