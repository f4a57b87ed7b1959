package nn

import (
	"math"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// logisticClip bounds the logistic input so exp never overflows.
const logisticClip = 10

// Logistic is the element-wise sigmoid activation.
//
// Applies: σ(x) = 1 / (1 + exp(-x)), with x clipped to [-10, 10].
//
// Example:
//
//	scores := layer.MustChain(nn.NewAffine(e, 1, 0), nn.Logistic())
func Logistic() layer.Layer[*tensor.Array, *tensor.Array] {
	return layer.Layerize(func(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
		y := x.Clone()
		yd := y.Data()
		for i, v := range yd {
			v = max(-logisticClip, min(logisticClip, v))
			yd[i] = float32(1 / (1 + math.Exp(-float64(v))))
		}
		return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, _ layer.Optimizer) (*tensor.Array, error) {
			if !dY.Shape().Equal(y.Shape()) {
				return nil, tensor.Mismatch("Logistic backward: gradient %v for output %v", dY.Shape(), y.Shape())
			}
			dX := dY.Clone()
			dxd := dX.Data()
			for i, s := range yd {
				dxd[i] *= s * (1 - s)
			}
			return dX, nil
		}), nil
	})
}

// ReLU is the rectified linear activation: f(x) = max(0, x).
func ReLU() layer.Layer[*tensor.Array, *tensor.Array] {
	return layer.Layerize(func(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
		y := x.Clone()
		yd := y.Data()
		for i, v := range yd {
			if v < 0 {
				yd[i] = 0
			}
		}
		return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, _ layer.Optimizer) (*tensor.Array, error) {
			if !dY.Shape().Equal(y.Shape()) {
				return nil, tensor.Mismatch("ReLU backward: gradient %v for output %v", dY.Shape(), y.Shape())
			}
			dX := dY.Clone()
			dxd := dX.Data()
			for i, v := range yd {
				if v <= 0 {
					dxd[i] = 0
				}
			}
			return dX, nil
		}), nil
	})
}
