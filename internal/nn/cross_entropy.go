package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/layerkit/internal/tensor"
)

// probFloor keeps log(p) finite for zero probabilities.
const probFloor = 1e-12

// CategoricalCrossEntropy scores probability rows against class indices.
//
// Parameters:
//   - probs: [batch_size, num_classes], e.g. a Softmax output
//   - truths: one class index per row; a negative index marks a row that
//     carries no loss and receives a zero gradient
//
// Returns:
//   - the gradient with respect to the logits, probs - one_hot(truth),
//     averaged over the batch
//   - the mean negative log likelihood over the scored rows
func CategoricalCrossEntropy(e tensor.Engine, probs *tensor.Array, truths []int) (*tensor.Array, float64, error) {
	shape := probs.Shape()
	if len(shape) != 2 {
		return nil, 0, tensor.Mismatch("cross entropy: expected 2D scores, got %v", shape)
	}
	n, nC := shape[0], shape[1]
	if len(truths) != n {
		return nil, 0, tensor.Mismatch("cross entropy: %d truths for %d rows", len(truths), n)
	}

	d := e.Alloc(shape)
	pd, dd := probs.Data(), d.Data()
	scored := 0
	var loss float64
	for r, truth := range truths {
		if truth < 0 {
			continue
		}
		if truth >= nC {
			return nil, 0, fmt.Errorf("cross entropy: class %d out of range for %d classes", truth, nC)
		}
		scored++
		row := pd[r*nC : (r+1)*nC]
		copy(dd[r*nC:(r+1)*nC], row)
		dd[r*nC+truth]--
		loss -= math.Log(max(float64(row[truth]), probFloor))
	}
	if n > 0 {
		scale := 1 / float32(n)
		for i := range dd {
			dd[i] *= scale
		}
	}
	if scored > 0 {
		loss /= float64(scored)
	}
	return d, loss, nil
}

// Accuracy returns the fraction of scored rows whose highest score is the
// true class. Rows with a negative truth are skipped.
func Accuracy(scores *tensor.Array, truths []int) float64 {
	shape := scores.Shape()
	if len(shape) != 2 || shape[1] == 0 {
		return 0
	}
	nC := shape[1]
	data := scores.Data()
	correct, scored := 0, 0
	for r, truth := range truths {
		if truth < 0 || r >= shape[0] {
			continue
		}
		scored++
		if argmax(data[r*nC:(r+1)*nC]) == truth {
			correct++
		}
	}
	if scored == 0 {
		return 0
	}
	return float64(correct) / float64(scored)
}

// argmax returns the index of the first maximum of z.
func argmax(z []float32) int {
	best := 0
	for i := 1; i < len(z); i++ {
		if z[i] > z[best] {
			best = i
		}
	}
	return best
}
