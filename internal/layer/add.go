package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Added sums the outputs of its branches elementwise.
type Added[In any] struct {
	engine   tensor.Engine
	branches []Layer[In, *tensor.Array]
}

// Add builds a layer computing branches[0](x) + branches[1](x) + ...
// Panics if no branch is given.
func Add[In any](e tensor.Engine, branches ...Layer[In, *tensor.Array]) *Added[In] {
	if len(branches) == 0 {
		panic("layer.Add: at least one branch is required")
	}
	return &Added[In]{engine: e, branches: branches}
}

// Dims reports the widths of the first resolved branch.
func (a *Added[In]) Dims() (nI, nO int) {
	for _, b := range a.branches {
		if s, ok := b.(Shaped); ok {
			if bI, bO := s.Dims(); bO > 0 {
				return bI, bO
			}
		}
	}
	return 0, 0
}

// Forward sums the branch outputs, which must all have the same shape.
//
// The derivative of a sum with respect to each term is the identity, so
// backward hands the unmodified dY to every branch. The branches share the
// input, so their input gradients are summed.
func (a *Added[In]) Forward(x In, train bool) (*tensor.Array, Backprop[*tensor.Array, In], error) {
	bps := make([]Backprop[*tensor.Array, In], len(a.branches))
	var out *tensor.Array
	for i, b := range a.branches {
		y, bp, err := b.Forward(x, train)
		if err != nil {
			return nil, nil, fmt.Errorf("add branch %d: %w", i, err)
		}
		bps[i] = bp
		if out == nil {
			out = y
			continue
		}
		if !y.Shape().Equal(out.Shape()) {
			return nil, nil, tensor.Mismatch("add branch %d: output %v, expected %v", i, y.Shape(), out.Shape())
		}
		out = a.engine.Add(out, y)
	}

	return out, BackpropFunc[*tensor.Array, In](func(dY *tensor.Array, opt Optimizer) (In, error) {
		var dX In
		for i, bp := range bps {
			g, err := bp.Backward(dY, opt)
			if err != nil {
				return dX, fmt.Errorf("add branch %d: %w", i, err)
			}
			if dX, err = accumulate(a.engine, dX, g); err != nil {
				return dX, fmt.Errorf("add branch %d: %w", i, err)
			}
		}
		return dX, nil
	}), nil
}
