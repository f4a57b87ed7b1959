package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Reapplied applies one layer to its own output several times. The weights
// are shared: it is the same layer every time, not a clone.
type Reapplied[T any] struct {
	engine tensor.Engine
	inner  Layer[T, T]
	n      int
}

// Reapply returns a layer computing inner(inner(...inner(x))) with n
// applications. Panics if n < 1.
func Reapply[T any](e tensor.Engine, inner Layer[T, T], n int) *Reapplied[T] {
	if n < 1 {
		panic("layer.Reapply: n must be at least 1")
	}
	return &Reapplied[T]{engine: e, inner: inner, n: n}
}

// Dims reports the inner layer's widths.
func (r *Reapplied[T]) Dims() (nI, nO int) {
	if s, ok := r.inner.(Shaped); ok {
		return s.Dims()
	}
	return 0, 0
}

// Forward runs the n applications, keeping every Backprop.
//
// Backward replays them last to first, feeding each replay the gradient
// returned by the one after it, and returns the sum of the gradients
// returned by all replays. With n == 1 this is exactly the inner layer.
func (r *Reapplied[T]) Forward(x T, train bool) (T, Backprop[T, T], error) {
	bps := make([]Backprop[T, T], 0, r.n)
	y := x
	for i := 0; i < r.n; i++ {
		out, bp, err := r.inner.Forward(y, train)
		if err != nil {
			var zero T
			return zero, nil, fmt.Errorf("reapply %d/%d: %w", i+1, r.n, err)
		}
		y = out
		bps = append(bps, bp)
	}

	return y, BackpropFunc[T, T](func(dY T, opt Optimizer) (T, error) {
		var dX T
		for i := len(bps) - 1; i >= 0; i-- {
			g, err := bps[i].Backward(dY, opt)
			if err != nil {
				return dX, fmt.Errorf("reapply %d/%d: %w", i+1, r.n, err)
			}
			if IsAbsent(g) {
				return dX, nil
			}
			if dX, err = accumulate(r.engine, dX, g); err != nil {
				return dX, err
			}
			dY = g
		}
		return dX, nil
	}), nil
}
