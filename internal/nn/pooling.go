package nn

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// SumPool reduces every sequence of a flattened batch to the sum of its
// rows: (rows, d) with n sequences becomes (n, d). Pad rows are ignored and
// empty sequences pool to zero.
func SumPool(e tensor.Engine) layer.Layer[*tensor.Ragged, *tensor.Array] {
	return pool(e, false)
}

// MeanPool is SumPool divided by each sequence's length.
func MeanPool(e tensor.Engine) layer.Layer[*tensor.Ragged, *tensor.Array] {
	return pool(e, true)
}

func pool(e tensor.Engine, mean bool) layer.Layer[*tensor.Ragged, *tensor.Array] {
	return layer.Layerize(func(x *tensor.Ragged, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Ragged], error) {
		if len(x.Data.Shape()) != 2 {
			return nil, nil, tensor.Mismatch("pool: expected 2D rows, got %v", x.Data.Shape())
		}
		seqs, err := tensor.Unflatten(e, x.Data, x.Lengths)
		if err != nil {
			return nil, nil, err
		}
		d := x.Data.Shape()[1]
		scale := make([]float32, len(seqs))
		y := e.Alloc(tensor.Shape{len(seqs), d})
		yd := y.Data()
		for i, seq := range seqs {
			scale[i] = 1
			if mean && seq.Rows() > 0 {
				scale[i] = 1 / float32(seq.Rows())
			}
			for j, v := range e.SumLeading(seq).Data() {
				yd[i*d+j] = v * scale[i]
			}
		}

		lengths := x.Lengths.Clone()
		return y, layer.BackpropFunc[*tensor.Array, *tensor.Ragged](func(dY *tensor.Array, _ layer.Optimizer) (*tensor.Ragged, error) {
			if !dY.Shape().Equal(y.Shape()) {
				return nil, tensor.Mismatch("pool backward: gradient %v for output %v", dY.Shape(), y.Shape())
			}
			if len(lengths.Sizes) == 0 {
				return &tensor.Ragged{Data: e.Alloc(x.Data.Shape()), Lengths: lengths}, nil
			}
			scaled := dY.Clone()
			sd := scaled.Data()
			for i := range lengths.Sizes {
				for j := 0; j < d; j++ {
					sd[i*d+j] *= scale[i]
				}
			}
			pieces := make([]*tensor.Array, len(lengths.Sizes))
			for i, n := range lengths.Sizes {
				rows := make([]int, n)
				for k := range rows {
					rows[k] = i
				}
				pieces[i] = e.GatherRows(scaled, rows)
			}
			dX, _, err := tensor.FlattenPadded(e, pieces, lengths.Pad, lengths.Mode)
			if err != nil {
				return nil, err
			}
			return &tensor.Ragged{Data: dX, Lengths: lengths}, nil
		}), nil
	})
}
