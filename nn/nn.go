// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/layer"
	"github.com/born-ml/layerkit/tensor"
)

// DefaultPieces is the maxout piece count used when 0 is requested.
const DefaultPieces = nn.DefaultPieces

// ErrUnresolvedDimension is returned when a layer is allocated before all of
// its widths are known.
var ErrUnresolvedDimension = nn.ErrUnresolvedDimension

// Parameter memory.
type (
	// Parameter is one named weight array with its gradient.
	Parameter = nn.Parameter
	// Params is the parameter block of one layer.
	Params = nn.Params
	// Trainable is implemented by every layer with parameters.
	Trainable = nn.Trainable
	// Initializer allocates parameters before any data has been seen.
	Initializer = nn.Initializer
)

// CountParams returns the number of allocated weights across layers.
func CountParams(layers ...Trainable) int {
	return nn.CountParams(layers...)
}

// Xavier fills w with Glorot-uniform values over its (rows, cols) view.
func Xavier(e tensor.Engine, w *tensor.Array, rows, cols int) {
	nn.Xavier(e, w, rows, cols)
}

// XavierIfZero initialises w only while it is all zeros.
func XavierIfZero(e tensor.Engine, w *tensor.Array, rows, cols int) bool {
	return nn.XavierIfZero(e, w, rows, cols)
}

// Precomputable layers.
type (
	PrecomputableAffine  = nn.PrecomputableAffine
	PrecomputableMaxouts = nn.PrecomputableMaxouts
	PrecomputedBackprop  = nn.PrecomputedBackprop
)

// NewPrecomputableAffine creates a projection through nF feature slots.
// nI may be 0.
//
// Example:
//
//	lower := nn.NewPrecomputableAffine(e, 64, 0, 13)
//	yf, bp, err := lower.Begin(tokens)          // (n, 13, 64)
//	dXf, err := bp.Backward(dY, ids, optimizer) // (m, 13, nI)
//	dX, err := bp.InputGradient(dXf, ids)       // (n, nI)
func NewPrecomputableAffine(e tensor.Engine, nO, nI, nF int) *PrecomputableAffine {
	return nn.NewPrecomputableAffine(e, nO, nI, nF)
}

// NewPrecomputableMaxouts creates the maxout variant with nP pieces.
func NewPrecomputableMaxouts(e tensor.Engine, nO, nI, nF, nP int) *PrecomputableMaxouts {
	return nn.NewPrecomputableMaxouts(e, nO, nI, nF, nP)
}

// Dense layers.
type (
	Affine    = nn.Affine
	Maxout    = nn.Maxout
	LayerNorm = nn.LayerNorm
	Softmax   = nn.Softmax
)

// NewAffine creates y = x @ W.T + b. nI may be 0.
func NewAffine(e tensor.Engine, nO, nI int) *Affine {
	return nn.NewAffine(e, nO, nI)
}

// NewMaxout creates a maxout layer with nP pieces. nI may be 0.
func NewMaxout(e tensor.Engine, nO, nI, nP int) *Maxout {
	return nn.NewMaxout(e, nO, nI, nP)
}

// NewLayerNorm creates a row normalisation. nI may be 0.
func NewLayerNorm(e tensor.Engine, nI int) *LayerNorm {
	return nn.NewLayerNorm(e, nI)
}

// LN appends a LayerNorm to child.
func LN(e tensor.Engine, child layer.Layer[*tensor.Array, *tensor.Array]) layer.Layer[*tensor.Array, *tensor.Array] {
	return nn.LN(e, child)
}

// NewSoftmax creates an affine layer followed by a row softmax.
func NewSoftmax(e tensor.Engine, nO, nI int) *Softmax {
	return nn.NewSoftmax(e, nO, nI)
}

// Logistic is the elementwise sigmoid.
func Logistic() layer.Layer[*tensor.Array, *tensor.Array] {
	return nn.Logistic()
}

// ReLU is the elementwise rectifier.
func ReLU() layer.Layer[*tensor.Array, *tensor.Array] {
	return nn.ReLU()
}

// Sequence layers.
type (
	HashEmbed     = nn.HashEmbed
	ExtractWindow = nn.ExtractWindow
)

// NewHashEmbed creates an (nV, nO) hashed embedding reading one key column.
func NewHashEmbed(e tensor.Engine, nO, nV, column int, seed uint32) *HashEmbed {
	return nn.NewHashEmbed(e, nO, nV, column, seed)
}

// NewExtractWindow concatenates every row with nW neighbours on each side.
func NewExtractWindow(e tensor.Engine, nW int) *ExtractWindow {
	return nn.NewExtractWindow(e, nW)
}

// SumPool sums every sequence of a ragged batch.
func SumPool(e tensor.Engine) layer.Layer[*tensor.Ragged, *tensor.Array] {
	return nn.SumPool(e)
}

// MeanPool averages every sequence of a ragged batch.
func MeanPool(e tensor.Engine) layer.Layer[*tensor.Ragged, *tensor.Array] {
	return nn.MeanPool(e)
}

// Losses.

// CategoricalCrossEntropy returns the gradient and mean loss of softmax
// probabilities against class ids. Negative ids are ignored.
func CategoricalCrossEntropy(e tensor.Engine, probs *tensor.Array, truths []int) (*tensor.Array, float64, error) {
	return nn.CategoricalCrossEntropy(e, probs, truths)
}

// MeanSquaredError returns the gradient and mean squared error.
func MeanSquaredError(e tensor.Engine, predictions, targets *tensor.Array) (*tensor.Array, float64, error) {
	return nn.MeanSquaredError(e, predictions, targets)
}

// Accuracy returns the share of rows whose argmax equals the truth.
func Accuracy(scores *tensor.Array, truths []int) float64 {
	return nn.Accuracy(scores, truths)
}
