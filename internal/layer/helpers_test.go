package layer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

func newEngine() tensor.Engine {
	return cpu.NewWithSeed(1)
}

func array(t *testing.T, shape tensor.Shape, data ...float32) *tensor.Array {
	t.Helper()
	a, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return a
}

func ramp(rows, cols int) *tensor.Array {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = float32(i%5) - 1.5
	}
	a, err := tensor.FromSlice(data, tensor.Shape{rows, cols})
	if err != nil {
		panic(err)
	}
	return a
}

func scaled(a *tensor.Array, k float32) *tensor.Array {
	out := a.Clone()
	for i := range out.Data() {
		out.Data()[i] *= k
	}
	return out
}

// scale is y = w*x with dX = w*dY. It records every gradient it receives
// and counts parameter updates through the optimizer.
type scale struct {
	w        float32
	nI       int
	received []*tensor.Array
}

func (s *scale) Dims() (int, int) { return s.nI, s.nI }

func (s *scale) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	if s.nI > 0 && x.RowSize() != s.nI {
		return nil, nil, tensor.Mismatch("scale: width %d, expected %d", x.RowSize(), s.nI)
	}
	return scaled(x, s.w), layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		s.received = append(s.received, dY.Clone())
		if opt != nil {
			opt.Update([]float32{s.w}, []float32{0}, 0)
		}
		return scaled(dY, s.w), nil
	}), nil
}

// widen maps (n, d) to (n, 2d) as [x, 2x]; dX = dY[:, :d] + 2*dY[:, d:].
type widen struct{}

func (widen) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	n, d := x.Rows(), x.RowSize()
	out := make([]float32, 0, n*2*d)
	for r := 0; r < n; r++ {
		row := x.Data()[r*d : (r+1)*d]
		out = append(out, row...)
		for _, v := range row {
			out = append(out, 2*v)
		}
	}
	y, err := tensor.FromSlice(out, tensor.Shape{n, 2 * d})
	if err != nil {
		return nil, nil, err
	}
	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, _ layer.Optimizer) (*tensor.Array, error) {
		dX := make([]float32, n*d)
		for r := 0; r < n; r++ {
			for j := 0; j < d; j++ {
				dX[r*d+j] = dY.At(r, j) + 2*dY.At(r, d+j)
			}
		}
		return tensor.FromSlice(dX, tensor.Shape{n, d})
	}), nil
}

// frozen passes x through unchanged but reports no input gradient.
type frozen struct{}

func (frozen) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	return x.Clone(), layer.BackpropFunc[*tensor.Array, *tensor.Array](func(*tensor.Array, layer.Optimizer) (*tensor.Array, error) {
		return nil, nil
	}), nil
}

// countingOptimizer counts Update calls per key.
type countingOptimizer map[layer.ID]int

func (c countingOptimizer) Update(_, _ []float32, key layer.ID) { c[key]++ }
