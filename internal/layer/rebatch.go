package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Rebatched bounds the batch a layer sees at once.
type Rebatched struct {
	engine tensor.Engine
	inner  Layer[*tensor.Array, *tensor.Array]
	size   int
}

// Rebatch wraps inner so that batches of size rows or more are processed in
// contiguous chunks of at most size rows. Panics if size < 1.
//
// inner must treat rows independently for the chunked result to match an
// unchunked call.
func Rebatch(e tensor.Engine, size int, inner Layer[*tensor.Array, *tensor.Array]) *Rebatched {
	if size < 1 {
		panic("layer.Rebatch: size must be at least 1")
	}
	return &Rebatched{engine: e, inner: inner, size: size}
}

// Dims reports the inner layer's widths.
func (r *Rebatched) Dims() (nI, nO int) {
	if s, ok := r.inner.(Shaped); ok {
		return s.Dims()
	}
	return 0, 0
}

// ResolveInput forwards to the inner layer.
func (r *Rebatched) ResolveInput(nI int) error {
	if res, ok := r.inner.(InputResolver); ok {
		return res.ResolveInput(nI)
	}
	return nil
}

// Forward delegates small batches to the inner layer and chunks the rest.
//
// The chunked Backprop cuts dY at the row counts the chunks produced, runs
// each chunk's Backprop and joins the results. If any chunk has no input
// gradient, the whole input gradient is absent.
func (r *Rebatched) Forward(x *tensor.Array, train bool) (*tensor.Array, Backprop[*tensor.Array, *tensor.Array], error) {
	if len(x.Shape()) == 0 {
		return nil, nil, tensor.Mismatch("rebatch: scalar input")
	}
	if x.Rows() < r.size {
		return r.inner.Forward(x, train)
	}

	var (
		outs []*tensor.Array
		bps  []Backprop[*tensor.Array, *tensor.Array]
		rows []int
	)
	for lo := 0; lo < x.Rows(); lo += r.size {
		hi := min(lo+r.size, x.Rows())
		y, bp, err := r.inner.Forward(x.RowSlice(lo, hi), train)
		if err != nil {
			return nil, nil, fmt.Errorf("rebatch rows [%d, %d): %w", lo, hi, err)
		}
		outs = append(outs, y)
		bps = append(bps, bp)
		rows = append(rows, y.Rows())
	}
	out := r.engine.Concat(outs, 0)

	return out, BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt Optimizer) (*tensor.Array, error) {
		if !dY.Shape().Equal(out.Shape()) {
			return nil, tensor.Mismatch("rebatch backward: gradient %v for output %v", dY.Shape(), out.Shape())
		}
		parts := r.engine.Split(dY, rows, 0)
		grads := make([]*tensor.Array, len(parts))
		absent := false
		for i, bp := range bps {
			g, err := bp.Backward(parts[i], opt)
			if err != nil {
				return nil, fmt.Errorf("rebatch chunk %d: %w", i, err)
			}
			if g == nil {
				absent = true
			}
			grads[i] = g
		}
		if absent {
			return nil, nil
		}
		return r.engine.Concat(grads, 0), nil
	}), nil
}
