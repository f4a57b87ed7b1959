package nn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

func newEngine() tensor.Engine {
	return cpu.NewWithSeed(7)
}

func array(t *testing.T, shape tensor.Shape, data ...float32) *tensor.Array {
	t.Helper()
	a, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return a
}

func random(e tensor.Engine, shape ...int) *tensor.Array {
	a := e.Alloc(tensor.Shape(shape))
	e.Uniform(a, 1)
	return a
}

// dot is Σ a*b over the flat data of two same-sized arrays.
func dot(a, b *tensor.Array) float64 {
	var s float64
	for i, v := range a.Data() {
		s += float64(v) * float64(b.Data()[i])
	}
	return s
}

// numericGrad estimates d loss / d data[i] by central differences.
func numericGrad(data []float32, loss func() float64) []float64 {
	const eps = 1e-3
	grad := make([]float64, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + eps
		up := loss()
		data[i] = orig - eps
		down := loss()
		data[i] = orig
		grad[i] = (up - down) / (2 * eps)
	}
	return grad
}

func requireClose(t *testing.T, want []float64, got []float32, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i], float64(got[i]), tol, "index %d", i)
	}
}

// recordingOptimizer remembers every key it was called with.
type recordingOptimizer struct {
	keys    []layer.ID
	lengths []int
}

func (r *recordingOptimizer) Update(weights, gradient []float32, key layer.ID) {
	r.keys = append(r.keys, key)
	r.lengths = append(r.lengths, len(weights))
	if len(weights) != len(gradient) {
		panic("weights and gradient differ in length")
	}
}
