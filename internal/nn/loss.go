package nn

import "github.com/born-ml/layerkit/internal/tensor"

// MeanSquaredError compares predictions with same-shaped targets.
//
// Loss = mean((predictions - targets)²)
//
// Returns the gradient (predictions - targets) / batch_size and the loss.
// Used for regression heads such as a Logistic score.
func MeanSquaredError(e tensor.Engine, predictions, targets *tensor.Array) (*tensor.Array, float64, error) {
	if !predictions.Shape().Equal(targets.Shape()) {
		return nil, 0, tensor.Mismatch("mean squared error: predictions %v, targets %v", predictions.Shape(), targets.Shape())
	}
	d := e.Alloc(predictions.Shape())
	pd, td, dd := predictions.Data(), targets.Data(), d.Data()
	if len(pd) == 0 {
		return d, 0, nil
	}
	scale := float32(1)
	if rows := predictions.Rows(); rows > 0 {
		scale = 1 / float32(rows)
	}
	var loss float64
	for i := range pd {
		diff := pd[i] - td[i]
		loss += float64(diff * diff)
		dd[i] = diff * scale
	}
	return d, loss / float64(len(pd)), nil
}
