package nn

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Affine implements a fully connected layer: y = x @ W.T + b.
//
// Shapes:
//   - x: [batch_size, nI]
//   - W: [nO, nI]
//   - b: [nO]
//   - y: [batch_size, nO]
//
// Weights are Xavier initialised on allocation unless ZeroInit was called;
// biases start at zero.
type Affine struct {
	engine   tensor.Engine
	nO, nI   int
	params   *Params
	zeroInit bool
}

// NewAffine creates an Affine layer. nI may be 0 to infer it from data.
func NewAffine(e tensor.Engine, nO, nI int) *Affine {
	return &Affine{engine: e, nO: nO, nI: nI, params: NewParams(e)}
}

// ZeroInit keeps W at zero on allocation, for output layers that should
// start by predicting the bias only. Returns the layer for chaining.
func (a *Affine) ZeroInit() *Affine {
	a.zeroInit = true
	return a
}

// Params returns the layer's parameter memory.
func (a *Affine) Params() *Params { return a.params }

// Dims reports (nI, nO).
func (a *Affine) Dims() (nI, nO int) { return a.nI, a.nO }

// ResolveInput fixes nI.
func (a *Affine) ResolveInput(nI int) error {
	return resolveWidth("Affine", &a.nI, nI)
}

// Initialize allocates W and b without data.
func (a *Affine) Initialize() error {
	if a.nI <= 0 {
		return fmt.Errorf("Affine: nI: %w", ErrUnresolvedDimension)
	}
	return a.materialize()
}

// W returns the weights. Nil before allocation.
func (a *Affine) W() *tensor.Array { return paramValue(a.params, "W") }

// B returns the bias. Nil before allocation.
func (a *Affine) B() *tensor.Array { return paramValue(a.params, "b") }

func (a *Affine) materialize() error {
	if a.params.Allocated() {
		return nil
	}
	if a.nO <= 0 {
		return fmt.Errorf("Affine: nO: %w", ErrUnresolvedDimension)
	}
	a.params.Declare("W", tensor.Shape{a.nO, a.nI})
	a.params.Declare("b", tensor.Shape{a.nO})
	a.params.Allocate()
	if !a.zeroInit {
		XavierIfZero(a.engine, a.W(), a.nO, a.nI)
	}
	return nil
}

// Forward computes x @ W.T + b.
func (a *Affine) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	if len(x.Shape()) != 2 {
		return nil, nil, tensor.Mismatch("Affine: expected 2D input, got %v", x.Shape())
	}
	if err := a.ResolveInput(x.Shape()[1]); err != nil {
		return nil, nil, err
	}
	if err := a.materialize(); err != nil {
		return nil, nil, err
	}

	w := a.W()
	y := a.engine.AddBroadcast(a.engine.MatMul(x, w, false, true), a.B())

	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		if !dY.Shape().Equal(y.Shape()) {
			return nil, tensor.Mismatch("Affine backward: gradient %v for output %v", dY.Shape(), y.Shape())
		}
		dX := a.engine.MatMul(dY, w, false, false)
		a.engine.AddInPlace(a.params.Get("W").Grad(), a.engine.MatMul(dY, x, true, false))
		a.engine.AddInPlace(a.params.Get("b").Grad(), a.engine.SumLeading(dY))
		a.params.Update(opt)
		return dX, nil
	}), nil
}

// resolveWidth sets *dim to n when unset, and reports a mismatch when it is
// already set to something else.
func resolveWidth(name string, dim *int, n int) error {
	switch {
	case *dim == 0:
		*dim = n
	case *dim != n:
		return tensor.Mismatch("%s: input width %d, expected %d", name, n, *dim)
	}
	return nil
}
