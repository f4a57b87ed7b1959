package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// ResidualLayer adds a layer's input to its output.
type ResidualLayer struct {
	engine tensor.Engine
	inner  Layer[*tensor.Array, *tensor.Array]
}

// Residual returns a layer computing x + inner(x). inner must preserve the
// shape of its input.
func Residual(e tensor.Engine, inner Layer[*tensor.Array, *tensor.Array]) *ResidualLayer {
	return &ResidualLayer{engine: e, inner: inner}
}

// Dims reports the inner layer's widths.
func (r *ResidualLayer) Dims() (nI, nO int) {
	if s, ok := r.inner.(Shaped); ok {
		return s.Dims()
	}
	return 0, 0
}

// ResolveInput forwards to the inner layer.
func (r *ResidualLayer) ResolveInput(nI int) error {
	if res, ok := r.inner.(InputResolver); ok {
		return res.ResolveInput(nI)
	}
	return nil
}

// Forward computes x + inner(x). Backward returns dY + inner'(dY).
func (r *ResidualLayer) Forward(x *tensor.Array, train bool) (*tensor.Array, Backprop[*tensor.Array, *tensor.Array], error) {
	y, bp, err := r.inner.Forward(x, train)
	if err != nil {
		return nil, nil, err
	}
	if !y.Shape().Equal(x.Shape()) {
		return nil, nil, tensor.Mismatch("residual: inner output %v for input %v", y.Shape(), x.Shape())
	}
	out := r.engine.Add(x, y)

	return out, BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt Optimizer) (*tensor.Array, error) {
		dInner, err := bp.Backward(dY, opt)
		if err != nil {
			return nil, fmt.Errorf("residual: %w", err)
		}
		if dInner == nil {
			return dY, nil
		}
		return r.engine.Add(dY, dInner), nil
	}), nil
}
