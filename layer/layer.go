// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layer provides the forward/backward layer contract and the
// combinators that compose layers.
//
// Every layer returns its output together with a Backprop. Combinators wire
// the Backprops of their children in reverse order, so a composed model is
// trained exactly like a single layer:
//
//	model := layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](
//	    nn.NewMaxout(e, 64, 0, 3),
//	    nn.NewSoftmax(e, 10, 64),
//	)
//	y, bp, err := model.Forward(x, true)
//	dX, err := bp.Backward(dY, opt)
package layer

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/tensor"
)

// ID identifies a parameterised layer for optimizer state.
type ID = layer.ID

// Optimizer receives weights and gradients during backward.
type Optimizer = layer.Optimizer

// OptimizerFunc adapts a function to Optimizer.
type OptimizerFunc = layer.OptimizerFunc

// Layer is a differentiable computation from In to Out.
type Layer[In, Out any] = layer.Layer[In, Out]

// Backprop is the backward half of a forward call.
type Backprop[Out, In any] = layer.Backprop[Out, In]

// BackpropFunc adapts a closure to Backprop.
type BackpropFunc[Out, In any] = layer.BackpropFunc[Out, In]

// Shaped is implemented by layers that know their widths.
type Shaped = layer.Shaped

// InputResolver is implemented by layers whose input width can be inferred.
type InputResolver = layer.InputResolver

// Combinator types.
type (
	Chained[A, B, C any] = layer.Chained[A, B, C]
	Concatenated[In any] = layer.Concatenated[In]
	Added[In any]        = layer.Added[In]
	Reapplied[T any]     = layer.Reapplied[T]
	Rebatched            = layer.Rebatched
	ResidualLayer        = layer.ResidualLayer
	UniquedLayer         = layer.UniquedLayer
)

// Layerize adapts a forward function to Layer.
func Layerize[In, Out any](forward func(x In, train bool) (Out, Backprop[Out, In], error)) Layer[In, Out] {
	return layer.Layerize(forward)
}

// Noop passes values through in both directions.
func Noop[T any]() Layer[T, T] {
	return layer.Noop[T]()
}

// IsAbsent reports whether g is an absent gradient.
func IsAbsent[T any](g T) bool {
	return layer.IsAbsent(g)
}

// Chain composes first and second. Returns an error when both widths are
// known and disagree.
func Chain[A, B, C any](first Layer[A, B], second Layer[B, C]) (*Chained[A, B, C], error) {
	return layer.Chain(first, second)
}

// MustChain is Chain that panics on error.
func MustChain[A, B, C any](first Layer[A, B], second Layer[B, C]) *Chained[A, B, C] {
	return layer.MustChain(first, second)
}

// Sequence chains same-typed layers left to right.
func Sequence[T any](layers ...Layer[T, T]) (Layer[T, T], error) {
	return layer.Sequence(layers...)
}

// Clone builds n independent layers.
func Clone[In, Out any](n int, build func(i int) Layer[In, Out]) []Layer[In, Out] {
	return layer.Clone(n, build)
}

// CloneChain builds n independent layers and chains them.
func CloneChain[T any](n int, build func(i int) Layer[T, T]) (Layer[T, T], error) {
	return layer.CloneChain(n, build)
}

// Concatenate runs every branch on the same input and joins the outputs
// along the last axis.
func Concatenate[In any](e tensor.Engine, branches ...Layer[In, *tensor.Array]) *Concatenated[In] {
	return layer.Concatenate(e, branches...)
}

// ConcatenateLists joins per-sequence outputs of branches over a batch.
func ConcatenateLists(e tensor.Engine, branches ...Layer[[]*tensor.Array, []*tensor.Array]) Layer[[]*tensor.Array, []*tensor.Array] {
	return layer.ConcatenateLists(e, branches...)
}

// GetCol selects one column of a 2D input.
func GetCol(e tensor.Engine, col int) Layer[*tensor.Array, *tensor.Array] {
	return layer.GetCol(e, col)
}

// Add runs every branch on the same input and sums the outputs.
func Add[In any](e tensor.Engine, branches ...Layer[In, *tensor.Array]) *Added[In] {
	return layer.Add(e, branches...)
}

// Residual computes x + inner(x).
func Residual(e tensor.Engine, inner Layer[*tensor.Array, *tensor.Array]) *ResidualLayer {
	return layer.Residual(e, inner)
}

// Reapply runs inner n times, feeding each output into the next call.
func Reapply[T any](e tensor.Engine, inner Layer[T, T], n int) *Reapplied[T] {
	return layer.Reapply(e, inner, n)
}

// Rebatch runs inner on row slices of at most size rows.
func Rebatch(e tensor.Engine, size int, inner Layer[*tensor.Array, *tensor.Array]) *Rebatched {
	return layer.Rebatch(e, size, inner)
}

// Uniqued runs inner once per distinct key in column.
func Uniqued(e tensor.Engine, inner Layer[*tensor.Keys, *tensor.Array], column int) *UniquedLayer {
	return layer.Uniqued(e, inner, column)
}

// Flatten concatenates a batch of sequences.
func Flatten(e tensor.Engine, pad int) Layer[[]*tensor.Array, *tensor.Array] {
	return layer.Flatten(e, pad)
}

// FlattenAddLengths concatenates a batch of sequences and keeps the lengths.
func FlattenAddLengths(e tensor.Engine, pad int) Layer[[]*tensor.Array, *tensor.Ragged] {
	return layer.FlattenAddLengths(e, pad)
}

// WithFlatten runs a row-wise layer over a batch of sequences.
func WithFlatten(e tensor.Engine, inner Layer[*tensor.Array, *tensor.Array], pad int, mode tensor.PadMode) Layer[[]*tensor.Array, []*tensor.Array] {
	return layer.WithFlatten(e, inner, pad, mode)
}

// WithFlattenKeys runs a key-consuming layer over a batch of key matrices.
func WithFlattenKeys(e tensor.Engine, inner Layer[*tensor.Keys, *tensor.Array], pad int, mode tensor.PadMode) Layer[[]*tensor.Keys, []*tensor.Array] {
	return layer.WithFlattenKeys(e, inner, pad, mode)
}
