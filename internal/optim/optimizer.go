// Package optim implements the optimizers layers hand their parameters to.
//
// This package provides:
//   - SGD: stochastic gradient descent with momentum
//   - Adam: adaptive moment estimation
//
// Both implement layer.Optimizer: a layer's backward pass calls
// Update(weights, gradient, key) with its flat parameter buffers, the
// optimizer updates the weights in place, keeps per-key state and clears
// the gradient.
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//	for _, batch := range batches {
//	    y, bp, _ := model.Forward(batch.X, true)
//	    dY, loss, _ := nn.CategoricalCrossEntropy(engine, y, batch.Truths)
//	    _, _ = bp.Backward(dY, opt)
//	}
package optim

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/layerkit/internal/layer"
)

// Optimizer is a layer.Optimizer with a learning rate that can be
// scheduled between updates.
type Optimizer interface {
	layer.Optimizer

	// LR returns the current learning rate.
	LR() float32

	// SetLR changes the learning rate for later updates.
	SetLR(lr float32)
}

// Regularization is shared by all optimizers.
type Regularization struct {
	// L2 adds L2 * weight to every gradient element (default: 0).
	L2 float32

	// MaxGradNorm rescales a gradient whose L2 norm exceeds it
	// (default: 0, no clipping).
	MaxGradNorm float32
}

// apply runs weight decay and norm clipping on gradient in place.
func (r Regularization) apply(weights, gradient []float32) {
	g := vector(gradient)
	if r.L2 != 0 {
		blas32.Axpy(r.L2, vector(weights), g)
	}
	if r.MaxGradNorm > 0 {
		if norm := blas32.Nrm2(g); norm > r.MaxGradNorm {
			blas32.Scal(r.MaxGradNorm/norm, g)
		}
	}
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// checkLengths panics when a layer lends mismatched buffers.
func checkLengths(weights, gradient []float32) {
	if len(weights) != len(gradient) {
		panic("optim: weights and gradient differ in length")
	}
}

// Ensure optimizers satisfy the interface.
var (
	_ Optimizer = (*SGD)(nil)
	_ Optimizer = (*Adam)(nil)
)
