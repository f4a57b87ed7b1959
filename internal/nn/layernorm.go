package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// layerNormEpsilon keeps the inverse deviation finite for constant rows.
const layerNormEpsilon = 1e-8

// LayerNorm normalises every row to zero mean and unit variance, then
// applies a learned gain G and bias b:
//
//	y = G * (x - mean(x)) / sqrt(var(x) + eps) + b
//
// G starts at one and b at zero. The width is taken from the first input.
type LayerNorm struct {
	engine tensor.Engine
	nI     int
	params *Params
}

// NewLayerNorm creates a LayerNorm layer. nI may be 0.
func NewLayerNorm(e tensor.Engine, nI int) *LayerNorm {
	return &LayerNorm{engine: e, nI: nI, params: NewParams(e)}
}

// LN appends a LayerNorm to child, sized from child's output width when it
// is known.
func LN(e tensor.Engine, child layer.Layer[*tensor.Array, *tensor.Array]) layer.Layer[*tensor.Array, *tensor.Array] {
	width := 0
	if s, ok := child.(layer.Shaped); ok {
		_, width = s.Dims()
	}
	return layer.MustChain(child, layer.Layer[*tensor.Array, *tensor.Array](NewLayerNorm(e, width)))
}

// Params returns the layer's parameter memory.
func (ln *LayerNorm) Params() *Params { return ln.params }

// Dims reports (nI, nI).
func (ln *LayerNorm) Dims() (nI, nO int) { return ln.nI, ln.nI }

// ResolveInput fixes the width.
func (ln *LayerNorm) ResolveInput(nI int) error {
	return resolveWidth("LayerNorm", &ln.nI, nI)
}

// Initialize allocates G and b without data.
func (ln *LayerNorm) Initialize() error {
	if ln.nI <= 0 {
		return fmt.Errorf("LayerNorm: nI: %w", ErrUnresolvedDimension)
	}
	ln.materialize()
	return nil
}

func (ln *LayerNorm) materialize() {
	if ln.params.Allocated() {
		return
	}
	ln.params.Declare("G", tensor.Shape{ln.nI})
	ln.params.Declare("b", tensor.Shape{ln.nI})
	ln.params.Allocate()
	ln.engine.Fill(ln.params.Get("G").Value(), 1)
}

// Forward normalises x row by row.
func (ln *LayerNorm) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	if len(x.Shape()) != 2 {
		return nil, nil, tensor.Mismatch("LayerNorm: expected 2D input, got %v", x.Shape())
	}
	if err := ln.ResolveInput(x.Shape()[1]); err != nil {
		return nil, nil, err
	}
	ln.materialize()

	n, d := x.Rows(), ln.nI
	g := ln.params.Get("G").Value().Data()
	b := ln.params.Get("b").Value().Data()
	xhat := ln.engine.Alloc(x.Shape())
	y := ln.engine.Alloc(x.Shape())
	inv := make([]float64, n)

	xd, hd, yd := x.Data(), xhat.Data(), y.Data()
	for r := 0; r < n; r++ {
		row := xd[r*d : (r+1)*d]
		var mean, variance float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(d)
		for _, v := range row {
			diff := float64(v) - mean
			variance += diff * diff
		}
		variance /= float64(d)
		inv[r] = 1 / math.Sqrt(variance+layerNormEpsilon)
		for j, v := range row {
			h := float32((float64(v) - mean) * inv[r])
			hd[r*d+j] = h
			yd[r*d+j] = g[j]*h + b[j]
		}
	}

	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		if !dY.Shape().Equal(y.Shape()) {
			return nil, tensor.Mismatch("LayerNorm backward: gradient %v for output %v", dY.Shape(), y.Shape())
		}
		dG := ln.params.Get("G").Grad().Data()
		db := ln.params.Get("b").Grad().Data()
		dX := ln.engine.Alloc(x.Shape())
		dyd, dxd := dY.Data(), dX.Data()
		for r := 0; r < n; r++ {
			var sumDh, sumDhH float64
			for j := 0; j < d; j++ {
				gy := dyd[r*d+j]
				h := hd[r*d+j]
				dG[j] += gy * h
				db[j] += gy
				dh := float64(gy * g[j])
				sumDh += dh
				sumDhH += dh * float64(h)
			}
			scale := inv[r] / float64(d)
			for j := 0; j < d; j++ {
				dh := float64(dyd[r*d+j] * g[j])
				h := float64(hd[r*d+j])
				dxd[r*d+j] = float32(scale * (float64(d)*dh - sumDh - h*sumDhH))
			}
		}
		ln.params.Update(opt)
		return dX, nil
	}), nil
}
