package tensor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/tensor"
)

func ramp(shape ...int) *tensor.Array {
	s := tensor.Shape(shape)
	data := make([]float32, s.NumElements())
	for i := range data {
		data[i] = float32(i%7) - 3
	}
	a, err := tensor.FromSlice(data, s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestTensorDot_AffineForward(t *testing.T) {
	e := cpu.NewWithSeed(0)
	x := ramp(2, 3)    // (b, i)
	w := ramp(4, 5, 3) // (f, o, i)

	y, err := tensor.TensorDot(e, x, w, []int{1}, []int{2})
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 4, 5}, y.Shape())

	for b := 0; b < 2; b++ {
		for f := 0; f < 4; f++ {
			for o := 0; o < 5; o++ {
				var want float32
				for i := 0; i < 3; i++ {
					want += x.At(b, i) * w.At(f, o, i)
				}
				assert.InDelta(t, want, y.At(b, f, o), 1e-5)
			}
		}
	}
}

func TestTensorDot_TwoAxes(t *testing.T) {
	e := cpu.NewWithSeed(0)
	dy := ramp(2, 4, 3)   // (n, o, p)
	w := ramp(5, 4, 3, 6) // (f, o, p, i)

	dx, err := tensor.TensorDot(e, dy, w, []int{1, 2}, []int{1, 2})
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 5, 6}, dx.Shape())

	for n := 0; n < 2; n++ {
		for f := 0; f < 5; f++ {
			for i := 0; i < 6; i++ {
				var want float32
				for o := 0; o < 4; o++ {
					for p := 0; p < 3; p++ {
						want += dy.At(n, o, p) * w.At(f, o, p, i)
					}
				}
				assert.InDelta(t, want, dx.At(n, f, i), 1e-4)
			}
		}
	}
}

func TestTensorDot_LeadingAxes(t *testing.T) {
	e := cpu.NewWithSeed(0)
	dy := ramp(3, 4)    // (n, o)
	xf := ramp(3, 2, 5) // (n, f, i)

	dw, err := tensor.TensorDot(e, dy, xf, []int{0}, []int{0})
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{4, 2, 5}, dw.Shape())

	for o := 0; o < 4; o++ {
		for f := 0; f < 2; f++ {
			for i := 0; i < 5; i++ {
				var want float32
				for n := 0; n < 3; n++ {
					want += dy.At(n, o) * xf.At(n, f, i)
				}
				assert.InDelta(t, want, dw.At(o, f, i), 1e-5)
			}
		}
	}
}

func TestTensorDot_Mismatch(t *testing.T) {
	e := cpu.NewWithSeed(0)

	_, err := tensor.TensorDot(e, ramp(2, 3), ramp(4, 5, 2), []int{1}, []int{2})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

	_, err = tensor.TensorDot(e, ramp(2, 3), ramp(3, 2), []int{1}, []int{0, 1})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

	_, err = tensor.TensorDot(e, ramp(2, 3), ramp(3, 2), []int{2}, []int{0})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}
