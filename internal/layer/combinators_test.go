package layer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

type resolvable struct {
	scale
	resolved int
}

func (r *resolvable) Dims() (int, int) { return r.resolved, 0 }

func (r *resolvable) ResolveInput(nI int) error {
	r.resolved = nI
	return nil
}

func TestChain(t *testing.T) {
	x := ramp(2, 3)

	t.Run("ForwardBackward", func(t *testing.T) {
		a, b := &scale{w: 2}, &scale{w: 3}
		c, err := layer.Chain[*tensor.Array, *tensor.Array, *tensor.Array](a, b)
		require.NoError(t, err)

		y, bp, err := c.Forward(x, true)
		require.NoError(t, err)
		assert.Equal(t, scaled(x, 6).Data(), y.Data())

		dY := ramp(2, 3)
		dX, err := bp.Backward(dY, nil)
		require.NoError(t, err)
		assert.Equal(t, scaled(dY, 6).Data(), dX.Data())
		// b sees dY untouched, a sees b's gradient.
		assert.Equal(t, dY.Data(), b.received[0].Data())
		assert.Equal(t, scaled(dY, 3).Data(), a.received[0].Data())
	})

	t.Run("CompositionMismatch", func(t *testing.T) {
		_, err := layer.Chain[*tensor.Array, *tensor.Array, *tensor.Array](&scale{w: 1, nI: 3}, &scale{w: 1, nI: 4})
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
		assert.Panics(t, func() {
			layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](&scale{w: 1, nI: 3}, &scale{w: 1, nI: 4})
		})
	})

	t.Run("ResolvesSecondInput", func(t *testing.T) {
		second := &resolvable{scale: scale{w: 1}}
		_, err := layer.Chain[*tensor.Array, *tensor.Array, *tensor.Array](&scale{w: 1, nI: 5}, second)
		require.NoError(t, err)
		assert.Equal(t, 5, second.resolved)
	})

	t.Run("MismatchAtFirstForward", func(t *testing.T) {
		c := layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](&scale{w: 1}, &scale{w: 1, nI: 4})
		_, _, err := c.Forward(x, false)
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
	})

	t.Run("AbsentGradientStops", func(t *testing.T) {
		a := &scale{w: 2}
		c := layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](a, frozen{})
		_, bp, err := c.Forward(x, true)
		require.NoError(t, err)
		dX, err := bp.Backward(ramp(2, 3), nil)
		require.NoError(t, err)
		assert.Nil(t, dX)
		assert.Empty(t, a.received)
	})
}

func TestSequence(t *testing.T) {
	x := ramp(3, 2)
	seq, err := layer.Sequence[*tensor.Array](&scale{w: 2}, &scale{w: 0.5}, &scale{w: 4})
	require.NoError(t, err)
	y, _, err := seq.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, scaled(x, 4).Data(), y.Data())

	id, err := layer.Sequence[*tensor.Array]()
	require.NoError(t, err)
	y, bp, err := id.Forward(x, false)
	require.NoError(t, err)
	assert.Same(t, x, y)
	dX, err := bp.Backward(x, nil)
	require.NoError(t, err)
	assert.Same(t, x, dX)
}

func TestConcatenate(t *testing.T) {
	e := newEngine()
	x := ramp(2, 3)
	a, b := &scale{w: 2}, widen{}
	c := layer.Concatenate[*tensor.Array](e, a, b)

	y, bp, err := c.Forward(x, true)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 9}, y.Shape())
	assert.Equal(t, 2*x.At(1, 2), y.At(1, 2))
	assert.Equal(t, x.At(1, 2), y.At(1, 5))
	assert.Equal(t, 2*x.At(1, 2), y.At(1, 8))

	dY := ramp(2, 9)
	dX, err := bp.Backward(dY, nil)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 3}, dX.Shape())

	// a only saw the first three columns.
	require.Len(t, a.received, 1)
	assert.Equal(t, tensor.Shape{2, 3}, a.received[0].Shape())
	for r := 0; r < 2; r++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, dY.At(r, j), a.received[0].At(r, j))
			want := 2*dY.At(r, j) + dY.At(r, 3+j) + 2*dY.At(r, 6+j)
			assert.InDelta(t, want, dX.At(r, j), 1e-6)
		}
	}

	t.Run("WrongGradientShape", func(t *testing.T) {
		_, err := bp.Backward(ramp(2, 8), nil)
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
	})

	t.Run("AbsentBranchSkipped", func(t *testing.T) {
		c := layer.Concatenate[*tensor.Array](e, frozen{}, &scale{w: 3})
		_, bp, err := c.Forward(x, true)
		require.NoError(t, err)
		dY := ramp(2, 6)
		dX, err := bp.Backward(dY, nil)
		require.NoError(t, err)
		require.Equal(t, tensor.Shape{2, 3}, dX.Shape())
		for r := 0; r < 2; r++ {
			for j := 0; j < 3; j++ {
				assert.Equal(t, 3*dY.At(r, 3+j), dX.At(r, j))
			}
		}
	})
}

func TestAdd_Linearity(t *testing.T) {
	e := newEngine()
	x := ramp(4, 3)
	g := ramp(4, 3)

	a, b := &scale{w: 2}, &scale{w: -0.5}
	sum := layer.Add[*tensor.Array](e, a, b)

	y, bp, err := sum.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, scaled(x, 1.5).Data(), y.Data())

	dX, err := bp.Backward(g, nil)
	require.NoError(t, err)

	// Each branch receives g unmodified.
	assert.Equal(t, g.Data(), a.received[0].Data())
	assert.Equal(t, g.Data(), b.received[0].Data())

	// And the result is the sum of the branches' own backward passes.
	_, bpA, _ := (&scale{w: 2}).Forward(x, true)
	_, bpB, _ := (&scale{w: -0.5}).Forward(x, true)
	gA, _ := bpA.Backward(g, nil)
	gB, _ := bpB.Backward(g, nil)
	assert.Equal(t, e.Add(gA, gB).Data(), dX.Data())

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, _, err := layer.Add[*tensor.Array](e, &scale{w: 1}, widen{}).Forward(x, false)
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
	})
}

func TestClone(t *testing.T) {
	e := newEngine()
	built := 0
	copies := layer.Clone(3, func(i int) layer.Layer[*tensor.Array, *tensor.Array] {
		built++
		return &scale{w: float32(i + 2)}
	})
	require.Len(t, copies, 3)
	assert.Equal(t, 3, built)
	assert.NotSame(t, copies[0], copies[1])

	x := ramp(2, 2)
	chain, err := layer.CloneChain(3, func(i int) layer.Layer[*tensor.Array, *tensor.Array] {
		return &scale{w: float32(i + 2)}
	})
	require.NoError(t, err)
	y, _, err := chain.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, scaled(x, 24).Data(), y.Data())

	cat := layer.CloneConcatenate(e, 2, func(i int) layer.Layer[*tensor.Array, *tensor.Array] {
		return &scale{w: float32(i + 1)}
	})
	y, _, err = cat.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, y.Shape())

	assert.Panics(t, func() {
		layer.Clone(0, func(int) layer.Layer[*tensor.Array, *tensor.Array] { return &scale{} })
	})
}

func TestReapply(t *testing.T) {
	e := newEngine()
	x := ramp(3, 2)
	dY := ramp(3, 2)

	t.Run("OnceEqualsInner", func(t *testing.T) {
		yDirect, bpDirect, err := (&scale{w: 1.5}).Forward(x, true)
		require.NoError(t, err)
		dDirect, err := bpDirect.Backward(dY, nil)
		require.NoError(t, err)

		y, bp, err := layer.Reapply[*tensor.Array](e, &scale{w: 1.5}, 1).Forward(x, true)
		require.NoError(t, err)
		dX, err := bp.Backward(dY, nil)
		require.NoError(t, err)

		assert.Equal(t, yDirect.Data(), y.Data())
		assert.Equal(t, dDirect.Data(), dX.Data())
	})

	t.Run("ThreeTimes", func(t *testing.T) {
		inner := &scale{w: 2}
		opt := countingOptimizer{}
		y, bp, err := layer.Reapply[*tensor.Array](e, inner, 3).Forward(x, true)
		require.NoError(t, err)
		assert.Equal(t, scaled(x, 8).Data(), y.Data())

		dX, err := bp.Backward(dY, opt)
		require.NoError(t, err)
		// Replays return 2dY, 4dY and 8dY; their sum is returned.
		for i, v := range dX.Data() {
			assert.InDelta(t, 14*dY.Data()[i], v, 1e-5)
		}
		assert.Equal(t, 3, opt[0])
		require.Len(t, inner.received, 3)
		assert.Equal(t, scaled(dY, 4).Data(), inner.received[2].Data())
	})

	assert.Panics(t, func() { layer.Reapply[*tensor.Array](e, &scale{}, 0) })
}

func TestResidual(t *testing.T) {
	e := newEngine()
	x := ramp(2, 3)
	r := layer.Residual(e, &scale{w: 3})

	y, bp, err := r.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, scaled(x, 4).Data(), y.Data())

	dX, err := bp.Backward(x, nil)
	require.NoError(t, err)
	assert.Equal(t, scaled(x, 4).Data(), dX.Data())

	_, _, err = layer.Residual(e, widen{}).Forward(x, false)
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

func TestIsAbsent(t *testing.T) {
	var arr *tensor.Array
	var list []*tensor.Array
	assert.True(t, layer.IsAbsent(arr))
	assert.True(t, layer.IsAbsent(list))
	assert.True(t, layer.IsAbsent[any](nil))
	assert.False(t, layer.IsAbsent(ramp(1, 1)))
	assert.False(t, layer.IsAbsent(0))
}

func TestNextID(t *testing.T) {
	a, b := layer.NextID(), layer.NextID()
	assert.NotEqual(t, a, b)
	assert.True(t, a < b)
}

func TestConcatenateLists(t *testing.T) {
	e := newEngine()
	batch := []*tensor.Array{ramp(2, 3), ramp(3, 3)}
	doubled := layer.WithFlatten(e, &scale{w: 2}, 0, tensor.PadEdges)
	widened := layer.WithFlatten(e, widen{}, 0, tensor.PadEdges)

	out, bp, err := layer.ConcatenateLists(e, doubled, widened).Forward(batch, true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i, seq := range batch {
		require.Equal(t, tensor.Shape{seq.Rows(), 9}, out[i].Shape())
		for r := 0; r < seq.Rows(); r++ {
			for c := 0; c < 3; c++ {
				x := seq.At(r, c)
				assert.Equal(t, 2*x, out[i].At(r, c))
				assert.Equal(t, x, out[i].At(r, 3+c))
				assert.Equal(t, 2*x, out[i].At(r, 6+c))
			}
		}
	}

	ones := func(rows int) *tensor.Array {
		a := e.Alloc(tensor.Shape{rows, 9})
		e.Fill(a, 1)
		return a
	}
	dX, err := bp.Backward([]*tensor.Array{ones(2), ones(3)}, nil)
	require.NoError(t, err)
	require.Len(t, dX, 2)
	for i, seq := range batch {
		require.Equal(t, seq.Shape(), dX[i].Shape())
		// 2 from the scaled branch, 1 + 2 from the widened one.
		for _, v := range dX[i].Data() {
			assert.InDelta(t, 5, v, 1e-6)
		}
	}

	t.Run("AbsentGradient", func(t *testing.T) {
		dX, err := bp.Backward(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, dX)
	})

	t.Run("NoBranches", func(t *testing.T) {
		out, _, err := layer.ConcatenateLists(e).Forward(batch, false)
		require.NoError(t, err)
		assert.Equal(t, batch, out)
	})
}

func TestGetCol(t *testing.T) {
	e := newEngine()
	x := array(t, tensor.Shape{3, 2}, 1, 2, 3, 4, 5, 6)

	y, bp, err := layer.GetCol(e, 1).Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 1}, y.Shape())
	assert.Equal(t, []float32{2, 4, 6}, y.Data())

	dX, err := bp.Backward(array(t, tensor.Shape{3, 1}, 1, 2, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, x.Shape(), dX.Shape())
	assert.Equal(t, []float32{0, 1, 0, 2, 0, 3}, dX.Data())

	_, _, err = layer.GetCol(e, 2).Forward(x, false)
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

	assert.Panics(t, func() { layer.GetCol(e, -1) })
}
