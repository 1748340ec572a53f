package carray

import (
	"errors"
	"fmt"
)

// ErrInvalidSize indicates a negative column size.
var ErrInvalidSize = errors.New("carray: invalid size")

// ErrTypeMismatch indicates a copy between columns of different scalar types.
var ErrTypeMismatch = errors.New("carray: column type mismatch")

// IndexError reports an out-of-range column access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("carray: index %d out of range [0,%d)", e.Index, e.Len)
}

// Type tags the scalar type of a column.
type Type int

const (
	Int64 Type = iota
	Float32
	Float64
)

func (t Type) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Scalar is the set of element types a column can hold.
type Scalar interface {
	~int64 | ~float32 | ~float64
}

// Column is the type-erased interface the particle store uses to treat a
// heterogeneous set of property columns uniformly. All values cross this
// interface as float64 and are converted to the column's scalar type.
type Column interface {
	Type() Type
	Len() int
	Resize(n int) error
	Grow(n int, fill float64)
	Remove(sorted []int)
	ValueAt(i int) (float64, error)
	SetValueAt(i int, v float64) error
	CopyInto(dst Column) error
}

// Array is a dense, resizable column of scalars.
type Array[T Scalar] struct {
	data []T
}

// Convenience aliases for the three supported column types.
type (
	Int64Array   = Array[int64]
	Float32Array = Array[float32]
	Float64Array = Array[float64]
)

// New allocates a column of n elements, each set to fill.
func New[T Scalar](n int, fill T) (*Array[T], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	a := &Array[T]{data: make([]T, n)}
	if fill != 0 {
		for i := range a.data {
			a.data[i] = fill
		}
	}
	return a, nil
}

// FromSlice wraps a copy of values in a column.
func FromSlice[T Scalar](values []T) *Array[T] {
	a := &Array[T]{data: make([]T, len(values))}
	copy(a.data, values)
	return a
}

func typeOf[T Scalar]() Type {
	var z T
	switch any(z).(type) {
	case int64:
		return Int64
	case float32:
		return Float32
	default:
		return Float64
	}
}

func (a *Array[T]) Type() Type { return typeOf[T]() }

func (a *Array[T]) Len() int { return len(a.data) }

// Get returns the element at i.
func (a *Array[T]) Get(i int) (T, error) {
	if i < 0 || i >= len(a.data) {
		var z T
		return z, &IndexError{Index: i, Len: len(a.data)}
	}
	return a.data[i], nil
}

// Set overwrites the element at i.
func (a *Array[T]) Set(i int, v T) error {
	if i < 0 || i >= len(a.data) {
		return &IndexError{Index: i, Len: len(a.data)}
	}
	a.data[i] = v
	return nil
}

// Data returns the live backing slice. The slice aliases column memory and
// is invalidated by Resize, Grow, Append and Remove; callers must not hold
// it across structural mutation.
func (a *Array[T]) Data() []T { return a.data }

// Resize truncates or zero-extends the column to n elements.
func (a *Array[T]) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	switch {
	case n <= len(a.data):
		a.data = a.data[:n]
	case n <= cap(a.data):
		old := len(a.data)
		a.data = a.data[:n]
		clear(a.data[old:])
	default:
		grown := make([]T, n)
		copy(grown, a.data)
		a.data = grown
	}
	return nil
}

// Append appends values, growing the column by len(values).
func (a *Array[T]) Append(values ...T) {
	a.data = append(a.data, values...)
}

// Grow extends the column by n slots initialized to fill.
func (a *Array[T]) Grow(n int, fill float64) {
	for i := 0; i < n; i++ {
		a.data = append(a.data, T(fill))
	}
}

// Remove deletes the elements at the given positions, which must be sorted
// ascending and unique. Each removed slot is filled by swapping in an
// element from the tail, so survivor order is not preserved; only the
// multiset of surviving values is. Processing runs from the highest index
// down so a tail element is never swapped into a slot that is itself
// scheduled for removal.
func (a *Array[T]) Remove(sorted []int) {
	for k := len(sorted) - 1; k >= 0; k-- {
		i := sorted[k]
		if i < 0 || i >= len(a.data) {
			continue
		}
		last := len(a.data) - 1
		a.data[i] = a.data[last]
		a.data = a.data[:last]
	}
}

// ValueAt returns the element at i converted to float64.
func (a *Array[T]) ValueAt(i int) (float64, error) {
	v, err := a.Get(i)
	return float64(v), err
}

// SetValueAt stores v at i, converted to the column's scalar type.
func (a *Array[T]) SetValueAt(i int, v float64) error {
	return a.Set(i, T(v))
}

// CopyInto replaces dst's contents with a copy of this column. The
// destination must have the same scalar type.
func (a *Array[T]) CopyInto(dst Column) error {
	d, ok := dst.(*Array[T])
	if !ok {
		return fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, a.Type(), dst.Type())
	}
	if err := d.Resize(len(a.data)); err != nil {
		return err
	}
	copy(d.data, a.data)
	return nil
}
