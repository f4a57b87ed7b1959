package tensor

import "fmt"

// Shape represents the dimensions of an array.
//
// Zero-sized dimensions are allowed: a sequence with no tokens is a
// (0, width) array and must survive flatten/unflatten unchanged.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// HasSuffix reports whether suffix matches the trailing dimensions of s.
//
// Bias vectors are broadcast over every leading axis, so a bias of shape
// (nO, nP) can be added to an output of shape (batch, nF, nO, nP).
func (s Shape) HasSuffix(suffix Shape) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):].Equal(suffix)
}

// Rows returns the size of the leading axis (0 for a scalar).
func (s Shape) Rows() int {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Inner returns the shape of a single row: every axis after the first.
func (s Shape) Inner() Shape {
	if len(s) == 0 {
		return Shape{}
	}
	return s[1:].Clone()
}

// WithRows returns a copy of s with its leading axis replaced by n.
func (s Shape) WithRows(n int) Shape {
	out := s.Clone()
	if len(out) == 0 {
		return Shape{n}
	}
	out[0] = n
	return out
}
