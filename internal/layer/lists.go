package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// ConcatenateLists is Concatenate for layers over batches of sequences.
// Every branch maps the batch to one output per sequence with the same row
// counts; the outputs are joined per sequence along the feature axis.
//
// Branch outputs are flattened and joined with Concatenate, then split back
// with the input's sequence lengths. Backward flattens the per-sequence
// gradients and hands them to the joined layer. With no branches the layer
// is the identity.
func ConcatenateLists(e tensor.Engine, branches ...Layer[[]*tensor.Array, []*tensor.Array]) Layer[[]*tensor.Array, []*tensor.Array] {
	if len(branches) == 0 {
		return Noop[[]*tensor.Array]()
	}
	flat := make([]Layer[[]*tensor.Array, *tensor.Array], len(branches))
	for i, b := range branches {
		flat[i] = MustChain(b, Flatten(e, 0))
	}
	concat := Concatenate(e, flat...)

	return Func[[]*tensor.Array, []*tensor.Array](func(seqs []*tensor.Array, train bool) ([]*tensor.Array, Backprop[[]*tensor.Array, []*tensor.Array], error) {
		lengths := tensor.Lengths{Sizes: make([]int, len(seqs)), Mode: tensor.PadEdges}
		for i, s := range seqs {
			if len(s.Shape()) == 0 {
				return nil, nil, tensor.Mismatch("concatenate lists: sequence %d is a scalar", i)
			}
			lengths.Sizes[i] = s.Rows()
		}
		y, bp, err := concat.Forward(seqs, train)
		if err != nil {
			return nil, nil, err
		}
		out, err := tensor.Unflatten(e, y, lengths)
		if err != nil {
			return nil, nil, fmt.Errorf("concatenate lists: %w", err)
		}

		return out, BackpropFunc[[]*tensor.Array, []*tensor.Array](func(dY []*tensor.Array, opt Optimizer) ([]*tensor.Array, error) {
			if dY == nil {
				return nil, nil
			}
			dFlat, _, err := tensor.Flatten(e, dY, 0)
			if err != nil {
				return nil, fmt.Errorf("concatenate lists backward: %w", err)
			}
			return bp.Backward(dFlat, opt)
		}), nil
	})
}

// GetCol returns a layer selecting column col of a 2D input as a (rows, 1)
// array. Backward writes the gradient into that column of an otherwise zero
// input gradient. Panics if col is negative.
func GetCol(e tensor.Engine, col int) Layer[*tensor.Array, *tensor.Array] {
	if col < 0 {
		panic(fmt.Sprintf("layer.GetCol: negative column %d", col))
	}
	return Func[*tensor.Array, *tensor.Array](func(x *tensor.Array, _ bool) (*tensor.Array, Backprop[*tensor.Array, *tensor.Array], error) {
		shape := x.Shape()
		if len(shape) != 2 || col >= shape[1] {
			return nil, nil, tensor.Mismatch("get col: column %d of %v", col, shape)
		}
		rows, cols := shape[0], shape[1]
		out := e.Alloc(tensor.Shape{rows, 1})
		src, dst := x.Data(), out.Data()
		for r := range rows {
			dst[r] = src[r*cols+col]
		}

		return out, BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, _ Optimizer) (*tensor.Array, error) {
			if dY == nil {
				return nil, nil
			}
			if dY.NumElements() != rows {
				return nil, tensor.Mismatch("get col backward: gradient %v for %d rows", dY.Shape(), rows)
			}
			dX := e.Alloc(shape)
			g, d := dY.Data(), dX.Data()
			for r := range rows {
				d[r*cols+col] += g[r]
			}
			return dX, nil
		}), nil
	})
}
