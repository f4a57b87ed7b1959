package nn

import (
	"math"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Softmax is an output layer: an Affine projection followed by a row-wise
// softmax.
//
// Backward expects the gradient with respect to the logits, which for
// categorical cross-entropy is simply probs - truth (see
// CategoricalCrossEntropy). The incoming gradient is therefore passed to the
// projection unchanged.
type Softmax struct {
	*Affine
}

// NewSoftmax creates a Softmax layer with nO classes. nI may be 0.
func NewSoftmax(e tensor.Engine, nO, nI int) *Softmax {
	return &Softmax{Affine: NewAffine(e, nO, nI)}
}

// Forward computes softmax(x @ W.T + b).
func (s *Softmax) Forward(x *tensor.Array, train bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	logits, bp, err := s.Affine.Forward(x, train)
	if err != nil {
		return nil, nil, err
	}
	nO := s.nO
	data := logits.Data()
	for r := 0; r < logits.Rows(); r++ {
		softmaxInPlace(data[r*nO : (r+1)*nO])
	}
	return logits, bp, nil
}

// softmaxInPlace replaces z with softmax(z), subtracting max(z) before
// exponentiating.
func softmaxInPlace(z []float32) {
	if len(z) == 0 {
		return
	}
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float64
	for i, v := range z {
		e := math.Exp(float64(v - maxZ))
		z[i] = float32(e)
		sum += e
	}
	for i := range z {
		z[i] = float32(float64(z[i]) / sum)
	}
}

// ZeroInit keeps the projection at zero on allocation, so the layer starts
// out predicting softmax(b). Returns the layer for chaining.
func (s *Softmax) ZeroInit() *Softmax {
	s.Affine.ZeroInit()
	return s
}
