package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// precomputable is the surface both contraction layers share.
type precomputable interface {
	layer.Layer[*tensor.Array, *tensor.Array]
	ID() layer.ID
	Params() *Params
	Initialize() error
	W() *tensor.Array
	B() *tensor.Array
	Begin(x *tensor.Array) (*tensor.Array, *PrecomputedBackprop, error)
}

type variant struct {
	name string
	out  tensor.Shape
	make func(e tensor.Engine, nI, nF int) precomputable
}

func variants() []variant {
	return []variant{
		{"affine", tensor.Shape{4}, func(e tensor.Engine, nI, nF int) precomputable {
			return NewPrecomputableAffine(e, 4, nI, nF)
		}},
		{"maxouts", tensor.Shape{3, 2}, func(e tensor.Engine, nI, nF int) precomputable {
			return NewPrecomputableMaxouts(e, 3, nI, nF, 2)
		}},
	}
}

func TestPrecomputableAffine_ZeroWeightsGiveBias(t *testing.T) {
	e := newEngine()
	l := NewPrecomputableAffine(e, 6, 3, 4)
	require.NoError(t, l.Initialize())
	e.Fill(l.W(), 0)
	for o := 0; o < 6; o++ {
		l.B().Set(float32(o)+0.5, o)
	}

	x := random(e, 5, 3)
	y, _, err := l.Begin(x)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{5, 4, 6}, y.Shape())
	for b := 0; b < 5; b++ {
		for f := 0; f < 4; f++ {
			for o := 0; o < 6; o++ {
				assert.Equal(t, float32(o)+0.5, y.At(b, f, o))
			}
		}
	}
}

func TestPrecomputable_OutputShapes(t *testing.T) {
	e := newEngine()
	affine := NewPrecomputableAffine(e, 6, 0, 4)
	y, _, err := affine.Begin(random(e, 5, 3))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 4, 6}, y.Shape())
	assert.Equal(t, 3, affine.NI())
	assert.Equal(t, tensor.Shape{4, 6, 3}, affine.W().Shape())

	maxouts := NewPrecomputableMaxouts(e, 6, 0, 4, 0)
	y, _, err = maxouts.Begin(random(e, 5, 3))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 4, 6, DefaultPieces}, y.Shape())
	assert.Equal(t, tensor.Shape{4, 6, DefaultPieces, 3}, maxouts.W().Shape())
	assert.Equal(t, tensor.Shape{6, DefaultPieces}, maxouts.B().Shape())
}

func TestPrecomputable_ForwardMatchesDefinition(t *testing.T) {
	e := newEngine()
	l := NewPrecomputableAffine(e, 2, 3, 2)
	x := random(e, 4, 3)
	y, _, err := l.Begin(x)
	require.NoError(t, err)
	w, b := l.W(), l.B()
	for n := 0; n < 4; n++ {
		for f := 0; f < 2; f++ {
			for o := 0; o < 2; o++ {
				want := b.At(o)
				for i := 0; i < 3; i++ {
					want += x.At(n, i) * w.At(f, o, i)
				}
				assert.InDelta(t, want, y.At(n, f, o), 1e-5)
			}
		}
	}
}

func TestPrecomputable_SelectedBackwardShapes(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 3, 2)
			x := random(e, 5, 3)
			_, bp, err := l.Begin(x)
			require.NoError(t, err)

			ids, err := tensor.NewIndex([]int{0, 4, 2, 2, 1, -1}, 3, 2)
			require.NoError(t, err)
			dY := random(e, append(tensor.Shape{3}, v.out...)...)

			dXf, err := bp.Backward(dY, ids, nil)
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{3, 2, 3}, dXf.Shape())

			dX, err := bp.InputGradient(dXf, ids)
			require.NoError(t, err)
			assert.Equal(t, x.Shape(), dX.Shape())
			assert.Same(t, x, bp.X())
		})
	}
}

// The selected backward is the gradient of
// L = Σ_n Σ_out dY[n,out] * (b[out] + Σ_f (Y[ids[n,f], f, out] - b[out])).
func TestPrecomputable_SelectedBackwardFiniteDifferences(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 3, 2)
			x := random(e, 4, 3)
			ids, err := tensor.NewIndex([]int{0, 3, 2, 2, 1, 0}, 3, 2)
			require.NoError(t, err)
			dY := random(e, append(tensor.Shape{3}, v.out...)...)
			width := v.out.NumElements()

			loss := func() float64 {
				y, _, err := l.Begin(x)
				require.NoError(t, err)
				b := l.B().Data()
				yd := y.Data()
				var s float64
				for n := 0; n < ids.Rows(); n++ {
					for o := 0; o < width; o++ {
						sum := float64(b[o])
						for f := 0; f < ids.Cols(); f++ {
							row := ids.Data()[n*ids.Cols()+f]
							sum += float64(yd[(row*ids.Cols()+f)*width+o] - b[o])
						}
						s += float64(dY.Data()[n*width+o]) * sum
					}
				}
				return s
			}

			wantX := numericGrad(x.Data(), loss)
			wantW := numericGrad(l.W().Data(), loss)
			wantB := numericGrad(l.B().Data(), loss)

			_, bp, err := l.Begin(x)
			require.NoError(t, err)
			l.Params().ZeroGrad()
			dXf, err := bp.Backward(dY, ids, nil)
			require.NoError(t, err)
			dX, err := bp.InputGradient(dXf, ids)
			require.NoError(t, err)

			requireClose(t, wantX, dX.Data(), 1e-2)
			requireClose(t, wantW, l.Params().Get("W").Grad().Data(), 1e-2)
			requireClose(t, wantB, l.Params().Get("b").Grad().Data(), 1e-2)
		})
	}
}

func TestPrecomputable_FullBackwardFiniteDifferences(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 3, 2)
			x := random(e, 4, 3)
			g := random(e, append(tensor.Shape{4, 2}, v.out...)...)

			loss := func() float64 {
				y, _, err := l.Forward(x, true)
				require.NoError(t, err)
				return dot(y, g)
			}
			wantX := numericGrad(x.Data(), loss)
			wantW := numericGrad(l.W().Data(), loss)
			wantB := numericGrad(l.B().Data(), loss)

			_, bp, err := l.Forward(x, true)
			require.NoError(t, err)
			l.Params().ZeroGrad()
			dX, err := bp.Backward(g, nil)
			require.NoError(t, err)

			requireClose(t, wantX, dX.Data(), 1e-2)
			requireClose(t, wantW, l.Params().Get("W").Grad().Data(), 1e-2)
			requireClose(t, wantB, l.Params().Get("b").Grad().Data(), 1e-2)
		})
	}
}

func TestPrecomputable_GradientsAccumulate(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 3, 2)
			_, bp, err := l.Begin(random(e, 4, 3))
			require.NoError(t, err)
			ids, err := tensor.NewIndex([]int{0, 1, 2, 3}, 2, 2)
			require.NoError(t, err)
			dY := random(e, append(tensor.Shape{2}, v.out...)...)

			_, err = bp.Backward(dY, ids, nil)
			require.NoError(t, err)
			once := append([]float32(nil), l.Params().Gradient()...)
			_, err = bp.Backward(dY, ids, nil)
			require.NoError(t, err)

			for i, g := range l.Params().Gradient() {
				assert.InDelta(t, 2*once[i], g, 1e-5)
			}
		})
	}
}

func TestPrecomputable_OptimizerReceivesOwnKey(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 3, 2)
			_, bp, err := l.Begin(random(e, 4, 3))
			require.NoError(t, err)
			ids, err := tensor.NewIndex([]int{0, 1}, 1, 2)
			require.NoError(t, err)

			opt := &recordingOptimizer{}
			_, err = bp.Backward(random(e, append(tensor.Shape{1}, v.out...)...), ids, opt)
			require.NoError(t, err)

			assert.Equal(t, []layer.ID{l.ID()}, opt.keys)
			assert.Equal(t, []int{len(l.Params().Weights())}, opt.lengths)
		})
	}
}

func TestPrecomputable_InitGuard(t *testing.T) {
	e := newEngine()
	l := NewPrecomputableAffine(e, 4, 3, 2)
	require.NoError(t, l.Initialize())
	assert.NotZero(t, e.SumOfSquares(l.W()))

	before := l.W().Clone()
	require.NoError(t, l.Initialize())
	assert.Equal(t, before.Data(), l.W().Data())

	// Zeroed after allocation stays zero: the guard runs only once.
	e.Fill(l.W(), 0)
	_, _, err := l.Begin(random(e, 2, 3))
	require.NoError(t, err)
	assert.Zero(t, e.SumOfSquares(l.W()))
}

func TestXavierIfZero(t *testing.T) {
	e := newEngine()
	w := e.Alloc(tensor.Shape{3, 4})
	assert.True(t, XavierIfZero(e, w, 3, 4))
	assert.NotZero(t, e.SumOfSquares(w))

	set := w.Clone()
	assert.False(t, XavierIfZero(e, w, 3, 4))
	assert.Equal(t, set.Data(), w.Data())
}

func TestPrecomputable_UnresolvedDimensions(t *testing.T) {
	e := newEngine()
	assert.ErrorIs(t, NewPrecomputableAffine(e, 4, 0, 2).Initialize(), ErrUnresolvedDimension)
	assert.ErrorIs(t, NewPrecomputableAffine(e, 0, 3, 2).Initialize(), ErrUnresolvedDimension)
	assert.ErrorIs(t, NewPrecomputableAffine(e, 4, 3, 0).Initialize(), ErrUnresolvedDimension)
	assert.ErrorIs(t, NewPrecomputableMaxouts(e, 4, 0, 2, 2).Initialize(), ErrUnresolvedDimension)

	_, _, err := NewPrecomputableAffine(e, 0, 0, 2).Begin(random(e, 2, 3))
	assert.ErrorIs(t, err, ErrUnresolvedDimension)
}

func TestPrecomputable_InputWidthMismatch(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			e := newEngine()
			l := v.make(e, 0, 2)
			_, _, err := l.Begin(random(e, 2, 3))
			require.NoError(t, err)
			_, _, err = l.Begin(random(e, 2, 4))
			assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

			_, _, err = l.Begin(random(e, 3))
			assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
		})
	}
}

func TestPrecomputable_BackwardRejectsBadArguments(t *testing.T) {
	e := newEngine()
	l := NewPrecomputableAffine(e, 4, 3, 2)
	_, bp, err := l.Begin(random(e, 3, 3))
	require.NoError(t, err)

	ids, err := tensor.NewIndex([]int{0, 1, 2}, 1, 3)
	require.NoError(t, err)
	_, err = bp.Backward(random(e, 1, 4), ids, nil)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch, "wrong selector width")

	ids, err = tensor.NewIndex([]int{0, 7}, 1, 2)
	require.NoError(t, err)
	_, err = bp.Backward(random(e, 1, 4), ids, nil)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch, "selector out of range")

	ids, err = tensor.NewIndex([]int{0, 1}, 1, 2)
	require.NoError(t, err)
	_, err = bp.Backward(random(e, 1, 5), ids, nil)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch, "wrong gradient width")

	_, err = bp.InputGradient(random(e, 1, 2, 4), ids)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestPrecomputable_Dims(t *testing.T) {
	e := newEngine()
	nI, nO := NewPrecomputableAffine(e, 6, 3, 4).Dims()
	assert.Equal(t, 3, nI)
	assert.Equal(t, 24, nO)

	nI, nO = NewPrecomputableMaxouts(e, 6, 3, 4, 2).Dims()
	assert.Equal(t, 3, nI)
	assert.Equal(t, 48, nO)
}
