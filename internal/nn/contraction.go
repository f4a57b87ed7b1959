package nn

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// contraction is the shared core of the precomputable layers.
//
// W has shape (nF, out..., nI) and b has shape (out...), where out is (nO)
// for the affine variant and (nO, nP) for the maxout variant. The forward
// pass contracts the input once against every feature slot:
//
//	Y[b, f, out...] = Σ_i X[b, i] W[f, out..., i] + b[out...]
type contraction struct {
	name   string
	engine tensor.Engine
	nF, nI int
	out    tensor.Shape
	params *Params

	// fan returns the 2D view W is Xavier-initialised as.
	fan func(w tensor.Shape) (rows, cols int)
}

func newContraction(name string, e tensor.Engine, nF, nI int, out tensor.Shape, fan func(tensor.Shape) (int, int)) *contraction {
	return &contraction{
		name:   name,
		engine: e,
		nF:     nF,
		nI:     nI,
		out:    out,
		params: NewParams(e),
		fan:    fan,
	}
}

func (c *contraction) wShape() tensor.Shape {
	s := tensor.Shape{c.nF}
	s = append(s, c.out...)
	return append(s, c.nI)
}

func (c *contraction) outWidth() int {
	return c.out.NumElements()
}

// resolveInput fixes nI. A different width after it is fixed is a mismatch.
func (c *contraction) resolveInput(nI int) error {
	return resolveWidth(c.name, &c.nI, nI)
}

// materialize allocates W and b on first use and runs the init guard.
func (c *contraction) materialize() error {
	if c.params.Allocated() {
		return nil
	}
	if c.nF <= 0 {
		return fmt.Errorf("%s: nF: %w", c.name, ErrUnresolvedDimension)
	}
	for _, d := range c.out {
		if d <= 0 {
			return fmt.Errorf("%s: output dims %v: %w", c.name, c.out, ErrUnresolvedDimension)
		}
	}
	if c.nI <= 0 {
		return fmt.Errorf("%s: nI: %w", c.name, ErrUnresolvedDimension)
	}

	c.params.Declare("W", c.wShape())
	c.params.Declare("b", c.out)
	c.params.Allocate()
	c.initWeights()
	return nil
}

func (c *contraction) initWeights() {
	w := c.params.Get("W").Value()
	rows, cols := c.fan(w.Shape())
	XavierIfZero(c.engine, w, rows, cols)
}

func (c *contraction) W() *tensor.Array { return c.params.Get("W").Value() }
func (c *contraction) b() *tensor.Array { return c.params.Get("b").Value() }

func (c *contraction) dW() *tensor.Array { return c.params.Get("W").Grad() }
func (c *contraction) db() *tensor.Array { return c.params.Get("b").Grad() }

// begin runs the forward contraction on X (batch, nI).
func (c *contraction) begin(x *tensor.Array) (*tensor.Array, error) {
	if len(x.Shape()) != 2 {
		return nil, tensor.Mismatch("%s: expected 2D input (batch, nI), got %v", c.name, x.Shape())
	}
	if err := c.resolveInput(x.Shape()[1]); err != nil {
		return nil, err
	}
	if err := c.materialize(); err != nil {
		return nil, err
	}
	y, err := tensor.TensorDot(c.engine, x, c.W(), []int{1}, []int{len(c.out) + 1})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return c.engine.AddBroadcast(y, c.b()), nil
}

// backwardSelected computes the gradient for one output row per selector
// row: dY is (n, out...), ids is (n, nF) and picks the input row each
// feature slot of that output row came from.
//
// It returns dXf (n, nF, nI) and accumulates into dW and db.
func (c *contraction) backwardSelected(x, dY *tensor.Array, ids *tensor.Index) (*tensor.Array, error) {
	want := append(tensor.Shape{ids.Rows()}, c.out...)
	if !dY.Shape().Equal(want) {
		return nil, tensor.Mismatch("%s backward: gradient %v, expected %v", c.name, dY.Shape(), want)
	}
	if ids.Cols() != c.nF {
		return nil, tensor.Mismatch("%s backward: %d selectors per row, expected nF=%d", c.name, ids.Cols(), c.nF)
	}
	for _, r := range ids.Data() {
		if r >= x.Rows() {
			return nil, tensor.Mismatch("%s backward: selector %d for %d input rows", c.name, r, x.Rows())
		}
	}

	k := len(c.out)
	xf := c.engine.GatherRows(x, ids.Data()).MustReshape(ids.Rows(), c.nF, c.nI)

	// Contract dY's out axes against W's out axes: (n, nF, nI).
	outAxes := make([]int, k)
	for i := range outAxes {
		outAxes[i] = i + 1
	}
	dXf, err := tensor.TensorDot(c.engine, dY, c.W(), outAxes, outAxes)
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", c.name, err)
	}

	// (out..., nF, nI) -> (nF, out..., nI)
	dW, err := tensor.TensorDot(c.engine, dY, xf, []int{0}, []int{0})
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", c.name, err)
	}
	perm := []int{k}
	for i := 0; i < k; i++ {
		perm = append(perm, i)
	}
	perm = append(perm, k+1)
	c.engine.AddInPlace(c.dW(), c.engine.Transpose(dW, perm...))
	c.engine.AddInPlace(c.db(), c.engine.SumLeading(dY))
	return dXf, nil
}

// backwardFull is the gradient of the plain layer face: dY is the full
// (batch, nF, out...) output gradient and the result has X's shape.
func (c *contraction) backwardFull(x, dY *tensor.Array) (*tensor.Array, error) {
	want := append(tensor.Shape{x.Rows(), c.nF}, c.out...)
	if !dY.Shape().Equal(want) {
		return nil, tensor.Mismatch("%s backward: gradient %v, expected %v", c.name, dY.Shape(), want)
	}

	k := len(c.out)
	axes := make([]int, k+1)
	for i := range axes {
		axes[i] = i
	}
	shifted := make([]int, k+1)
	for i := range shifted {
		shifted[i] = i + 1
	}
	dX, err := tensor.TensorDot(c.engine, dY, c.W(), shifted, axes)
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", c.name, err)
	}
	dW, err := tensor.TensorDot(c.engine, dY, x, []int{0}, []int{0})
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", c.name, err)
	}
	c.engine.AddInPlace(c.dW(), dW)
	c.engine.AddInPlace(c.db(), c.engine.SumLeading(c.engine.SumLeading(dY)))
	return dX, nil
}

// forward serves the layer.Layer face of both variants.
func (c *contraction) forward(x *tensor.Array) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	y, err := c.begin(x)
	if err != nil {
		return nil, nil, err
	}
	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		dX, err := c.backwardFull(x, dY)
		if err != nil {
			return nil, err
		}
		c.params.Update(opt)
		return dX, nil
	}), nil
}

// PrecomputedBackprop is the backward half of a precomputable layer's
// Begin call. It holds the input X the output was computed from.
type PrecomputedBackprop struct {
	c *contraction
	x *tensor.Array
}

// Backward takes one output-gradient row per selector row and returns the
// per-feature input gradient dXf (n, nF, nI).
//
// dY is (n, nO) for the affine variant and (n, nO, nP) for maxout. ids is
// (n, nF): ids[n, f] is the row of X whose contraction through feature slot
// f contributed to output row n. Rows may repeat and a negative selector
// contributes nothing. The weight and bias gradients are accumulated, never
// overwritten, then opt (when non-nil) receives the layer's flat buffers.
func (bp *PrecomputedBackprop) Backward(dY *tensor.Array, ids *tensor.Index, opt layer.Optimizer) (*tensor.Array, error) {
	dXf, err := bp.c.backwardSelected(bp.x, dY, ids)
	if err != nil {
		return nil, err
	}
	bp.c.params.Update(opt)
	return dXf, nil
}

// InputGradient folds a per-feature gradient dXf (n, nF, nI) back onto the
// rows of X: every selected row receives the sum of all gradient rows that
// selected it. The result has X's shape.
func (bp *PrecomputedBackprop) InputGradient(dXf *tensor.Array, ids *tensor.Index) (*tensor.Array, error) {
	want := tensor.Shape{ids.Rows(), ids.Cols(), bp.x.Shape()[1]}
	if !dXf.Shape().Equal(want) {
		return nil, tensor.Mismatch("%s input gradient: %v, expected %v", bp.c.name, dXf.Shape(), want)
	}
	dX := bp.c.engine.Alloc(bp.x.Shape())
	bp.c.engine.ScatterAddRows(dX, dXf.MustReshape(ids.Rows()*ids.Cols(), want[2]), ids.Data())
	return dX, nil
}

// X returns the input the forward pass was computed from.
func (bp *PrecomputedBackprop) X() *tensor.Array {
	return bp.x
}
