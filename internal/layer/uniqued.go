package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// UniquedLayer runs a key-consuming layer once per distinct key.
type UniquedLayer struct {
	engine tensor.Engine
	inner  Layer[*tensor.Keys, *tensor.Array]
	column int
}

// Uniqued wraps inner so that rows sharing the same key in column are
// computed once. Rows with equal keys in that column must be fully
// interchangeable for inner (the column is usually the ORTH feature, which
// determines all others).
func Uniqued(e tensor.Engine, inner Layer[*tensor.Keys, *tensor.Array], column int) *UniquedLayer {
	return &UniquedLayer{engine: e, inner: inner, column: column}
}

// Dims reports the inner layer's widths.
func (u *UniquedLayer) Dims() (nI, nO int) {
	if s, ok := u.inner.(Shaped); ok {
		return s.Dims()
	}
	return 0, 0
}

// Forward picks the first row of every distinct key (in order of first
// appearance), runs inner on those rows and copies each result back to all
// rows that share the key.
//
// Backward scatter-adds the gradients of duplicate rows onto their unique
// row, so a key seen k times receives the sum of its k gradients, then runs
// inner's backward once.
func (u *UniquedLayer) Forward(x *tensor.Keys, train bool) (*tensor.Array, Backprop[*tensor.Array, *tensor.Keys], error) {
	if u.column < 0 || u.column >= x.Cols() {
		return nil, nil, tensor.Mismatch("uniqued: key column %d of a %d-column matrix", u.column, x.Cols())
	}

	first := make(map[uint64]int, x.Rows())
	var picks []int
	inverse := make([]int, x.Rows())
	for r := 0; r < x.Rows(); r++ {
		key := x.At(r, u.column)
		idx, ok := first[key]
		if !ok {
			idx = len(picks)
			first[key] = idx
			picks = append(picks, r)
		}
		inverse[r] = idx
	}

	yUniq, bp, err := u.inner.Forward(x.SelectRows(picks), train)
	if err != nil {
		return nil, nil, err
	}
	if len(yUniq.Shape()) == 0 || yUniq.Rows() != len(picks) {
		return nil, nil, tensor.Mismatch("uniqued: inner returned %v for %d rows", yUniq.Shape(), len(picks))
	}
	out := u.engine.GatherRows(yUniq, inverse)

	return out, BackpropFunc[*tensor.Array, *tensor.Keys](func(dY *tensor.Array, opt Optimizer) (*tensor.Keys, error) {
		if !dY.Shape().Equal(out.Shape()) {
			return nil, tensor.Mismatch("uniqued backward: gradient %v for output %v", dY.Shape(), out.Shape())
		}
		dUniq := u.engine.Alloc(yUniq.Shape())
		u.engine.ScatterAddRows(dUniq, dY, inverse)
		if _, err := bp.Backward(dUniq, opt); err != nil {
			return nil, fmt.Errorf("uniqued: %w", err)
		}
		return nil, nil
	}), nil
}
