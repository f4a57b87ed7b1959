package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Concatenated runs every branch on the same input and joins the outputs
// along the last (feature) axis, in branch order.
type Concatenated[In any] struct {
	engine   tensor.Engine
	branches []Layer[In, *tensor.Array]
}

// Concatenate builds a fan-out layer from branches.
// Panics if no branch is given.
func Concatenate[In any](e tensor.Engine, branches ...Layer[In, *tensor.Array]) *Concatenated[In] {
	if len(branches) == 0 {
		panic("layer.Concatenate: at least one branch is required")
	}
	return &Concatenated[In]{engine: e, branches: branches}
}

// Dims reports the shared input width and the summed output width, or zero
// when any branch is not resolved.
func (c *Concatenated[In]) Dims() (nI, nO int) {
	for _, b := range c.branches {
		s, ok := b.(Shaped)
		if !ok {
			return 0, 0
		}
		bI, bO := s.Dims()
		if bO == 0 {
			return nI, 0
		}
		if nI == 0 {
			nI = bI
		}
		nO += bO
	}
	return nI, nO
}

// ResolveInput passes the input width to every branch that accepts it.
func (c *Concatenated[In]) ResolveInput(nI int) error {
	for i, b := range c.branches {
		if r, ok := b.(InputResolver); ok {
			if err := r.ResolveInput(nI); err != nil {
				return fmt.Errorf("concatenate branch %d: %w", i, err)
			}
		}
	}
	return nil
}

// Forward runs all branches on x.
//
// Backward cuts dY along the last axis at the widths each branch produced,
// hands every branch its own slice, and sums the branches' input gradients
// (all branches read the same input). Branches without an input gradient are
// skipped; if none has one the result is absent.
func (c *Concatenated[In]) Forward(x In, train bool) (*tensor.Array, Backprop[*tensor.Array, In], error) {
	outs := make([]*tensor.Array, len(c.branches))
	bps := make([]Backprop[*tensor.Array, In], len(c.branches))
	widths := make([]int, len(c.branches))
	for i, b := range c.branches {
		y, bp, err := b.Forward(x, train)
		if err != nil {
			return nil, nil, fmt.Errorf("concatenate branch %d: %w", i, err)
		}
		if len(y.Shape()) == 0 {
			return nil, nil, tensor.Mismatch("concatenate branch %d: scalar output", i)
		}
		if i > 0 {
			prev, cur := outs[0].Shape(), y.Shape()
			if len(prev) != len(cur) || !prev[:len(prev)-1].Equal(cur[:len(cur)-1]) {
				return nil, nil, tensor.Mismatch("concatenate branch %d: output %v cannot join %v", i, cur, prev)
			}
		}
		outs[i], bps[i] = y, bp
		widths[i] = y.Shape()[len(y.Shape())-1]
	}
	out := c.engine.Concat(outs, -1)

	return out, BackpropFunc[*tensor.Array, In](func(dY *tensor.Array, opt Optimizer) (In, error) {
		var dX In
		if !dY.Shape().Equal(out.Shape()) {
			return dX, tensor.Mismatch("concatenate backward: gradient %v for output %v", dY.Shape(), out.Shape())
		}
		slices := c.engine.Split(dY, widths, -1)
		for i, bp := range bps {
			g, err := bp.Backward(slices[i], opt)
			if err != nil {
				return dX, fmt.Errorf("concatenate branch %d: %w", i, err)
			}
			if dX, err = accumulate(c.engine, dX, g); err != nil {
				return dX, fmt.Errorf("concatenate branch %d: %w", i, err)
			}
		}
		return dX, nil
	}), nil
}
