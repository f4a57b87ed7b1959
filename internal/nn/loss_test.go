package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/tensor"
)

func TestSoftmax_RowsSumToOne(t *testing.T) {
	e := newEngine()
	s := NewSoftmax(e, 4, 3)
	y, _, err := s.Forward(random(e, 5, 3), false)
	require.NoError(t, err)
	for r := 0; r < 5; r++ {
		var sum float32
		for c := 0; c < 4; c++ {
			p := y.At(r, c)
			assert.True(t, p > 0 && p < 1)
			sum += p
		}
		assert.InDelta(t, 1, sum, 1e-5)
	}
}

func TestSoftmax_ZeroInitIsUniform(t *testing.T) {
	e := newEngine()
	s := NewSoftmax(e, 4, 3).ZeroInit()
	y, _, err := s.Forward(random(e, 2, 3), false)
	require.NoError(t, err)
	for _, p := range y.Data() {
		assert.InDelta(t, 0.25, p, 1e-6)
	}
}

func TestSoftmax_LargeLogitsStayFinite(t *testing.T) {
	z := []float32{1000, 1001, 999}
	softmaxInPlace(z)
	for _, p := range z {
		assert.False(t, math.IsNaN(float64(p)))
	}
	assert.InDelta(t, 0.665241, z[1], 1e-5)
}

// The cross-entropy gradient fed into Softmax's backward must match finite
// differences of the loss with respect to the layer's input.
func TestSoftmax_CrossEntropyGradient(t *testing.T) {
	e := newEngine()
	s := NewSoftmax(e, 3, 4)
	x := random(e, 2, 4)
	truths := []int{2, 0}

	loss := func() float64 {
		probs, _, err := s.Forward(x, true)
		require.NoError(t, err)
		_, l, err := CategoricalCrossEntropy(e, probs, truths)
		require.NoError(t, err)
		return l
	}
	want := numericGrad(x.Data(), loss)

	probs, bp, err := s.Forward(x, true)
	require.NoError(t, err)
	d, _, err := CategoricalCrossEntropy(e, probs, truths)
	require.NoError(t, err)
	dX, err := bp.Backward(d, nil)
	require.NoError(t, err)
	requireClose(t, want, dX.Data(), 1e-2)
}

func TestCategoricalCrossEntropy(t *testing.T) {
	e := newEngine()
	probs := array(t, tensor.Shape{2, 2}, 0.25, 0.75, 0.5, 0.5)
	d, loss, err := CategoricalCrossEntropy(e, probs, []int{1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.75), loss, 1e-6)
	assert.InDeltaSlice(t, []float32{0.125, -0.125, 0, 0}, d.Data(), 1e-6)

	_, _, err = CategoricalCrossEntropy(e, probs, []int{0})
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
	_, _, err = CategoricalCrossEntropy(e, probs, []int{0, 2})
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	scores := array(t, tensor.Shape{3, 2}, 0.9, 0.1, 0.2, 0.8, 0.6, 0.4)
	assert.InDelta(t, 2.0/3.0, Accuracy(scores, []int{0, 1, 1}), 1e-9)
	assert.InDelta(t, 1.0, Accuracy(scores, []int{0, -1, 0}), 1e-9)
	assert.Zero(t, Accuracy(scores, []int{-1, -1, -1}))
}

func TestMeanSquaredError(t *testing.T) {
	e := newEngine()
	pred := array(t, tensor.Shape{2, 1}, 1, 3)
	truth := array(t, tensor.Shape{2, 1}, 0, 3)
	d, loss, err := MeanSquaredError(e, pred, truth)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loss, 1e-9)
	assert.Equal(t, []float32{0.5, 0}, d.Data())

	_, _, err = MeanSquaredError(e, pred, array(t, tensor.Shape{1, 2}, 0, 0))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}
