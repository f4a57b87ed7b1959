// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/layerkit/internal/tensor"
)

// Shape is the size of every axis of an Array.
type Shape = tensor.Shape

// Device identifies the hardware an Engine dispatches to.
type Device = tensor.Device

// Supported devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)

// Array is a dense float32 array in row-major order.
type Array = tensor.Array

// Keys is a row-major matrix of uint64 feature keys.
type Keys = tensor.Keys

// Index is a row-major matrix of int row selectors. Negative entries select
// nothing.
type Index = tensor.Index

// Engine is the numeric capability every layer computes through.
type Engine = tensor.Engine

// ErrDimensionMismatch is wrapped by every shape error layers return.
var ErrDimensionMismatch = tensor.ErrDimensionMismatch

// NewArray returns a zero-filled array.
func NewArray(shape Shape, device Device) (*Array, error) {
	return tensor.NewArray(shape, device)
}

// FromSlice wraps data as a CPU array of the given shape.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice(data []float32, shape Shape) (*Array, error) {
	return tensor.FromSlice(data, shape)
}

// NewKeys wraps data as a (rows, cols) key matrix.
func NewKeys(data []uint64, rows, cols int) (*Keys, error) {
	return tensor.NewKeys(data, rows, cols)
}

// NewIndex wraps data as a (rows, cols) selector matrix.
func NewIndex(data []int, rows, cols int) (*Index, error) {
	return tensor.NewIndex(data, rows, cols)
}

// TensorDot contracts axesA of a with axesB of b.
func TensorDot(e Engine, a, b *Array, axesA, axesB []int) (*Array, error) {
	return tensor.TensorDot(e, a, b, axesA, axesB)
}
