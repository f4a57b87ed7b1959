package nn

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// ExtractWindow concatenates every row with its nW neighbours on each side:
// (n, d) becomes (n, (2*nW+1)*d), ordered from the leftmost neighbour to the
// rightmost. Neighbours past either end are zero rows.
//
// It runs on flattened batches, so sequences should be separated by at
// least nW pad rows (tensor.PadSequences) to keep windows inside one
// sequence.
type ExtractWindow struct {
	engine tensor.Engine
	nW     int
}

// NewExtractWindow creates the layer. Panics if nW < 0.
func NewExtractWindow(e tensor.Engine, nW int) *ExtractWindow {
	if nW < 0 {
		panic("nn.NewExtractWindow: nW must be >= 0")
	}
	return &ExtractWindow{engine: e, nW: nW}
}

// Forward builds the windows with one row gather per offset.
func (w *ExtractWindow) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	if len(x.Shape()) != 2 {
		return nil, nil, tensor.Mismatch("ExtractWindow: expected 2D input, got %v", x.Shape())
	}
	n, d := x.Rows(), x.Shape()[1]
	offsets := make([][]int, 0, 2*w.nW+1)
	parts := make([]*tensor.Array, 0, 2*w.nW+1)
	for off := -w.nW; off <= w.nW; off++ {
		rows := make([]int, n)
		for i := range rows {
			src := i + off
			if src < 0 || src >= n {
				src = -1
			}
			rows[i] = src
		}
		offsets = append(offsets, rows)
		parts = append(parts, w.engine.GatherRows(x, rows))
	}
	y := w.engine.Concat(parts, -1)

	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, _ layer.Optimizer) (*tensor.Array, error) {
		if !dY.Shape().Equal(y.Shape()) {
			return nil, tensor.Mismatch("ExtractWindow backward: gradient %v for output %v", dY.Shape(), y.Shape())
		}
		widths := make([]int, len(offsets))
		for i := range widths {
			widths[i] = d
		}
		dX := w.engine.Alloc(x.Shape())
		for i, g := range w.engine.Split(dY, widths, -1) {
			w.engine.ScatterAddRows(dX, g, offsets[i])
		}
		return dX, nil
	}), nil
}
