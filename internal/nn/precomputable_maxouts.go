package nn

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// DefaultPieces is the number of maxout candidates per output unit.
const DefaultPieces = 3

// PrecomputableMaxouts is PrecomputableAffine with a piece axis: every
// output unit gets nP candidate values, to be reduced by a downstream max.
// No max is taken here.
//
// Shapes:
//   - X: (batch, nI)
//   - W: (nF, nO, nP, nI)
//   - b: (nO, nP)
//   - Y: (batch, nF, nO, nP)
//
// Backward with selectors takes dY (n, nO, nP); the input-gradient path
// contracts over both nO and nP.
type PrecomputableMaxouts struct {
	c *contraction
}

// NewPrecomputableMaxouts creates the layer. nP <= 0 selects DefaultPieces.
func NewPrecomputableMaxouts(e tensor.Engine, nO, nI, nF, nP int) *PrecomputableMaxouts {
	if nP <= 0 {
		nP = DefaultPieces
	}
	return &PrecomputableMaxouts{
		c: newContraction("PrecomputableMaxouts", e, nF, nI, tensor.Shape{nO, nP}, maxoutFan),
	}
}

// maxoutFan uses the first two axes of W (nF, nO, nP, nI).
func maxoutFan(w tensor.Shape) (rows, cols int) {
	return w[0], w[1]
}

// ID returns the optimizer key of the layer's parameters.
func (l *PrecomputableMaxouts) ID() layer.ID { return l.c.params.ID() }

// Params returns the layer's parameter memory.
func (l *PrecomputableMaxouts) Params() *Params { return l.c.params }

// NO returns the output width.
func (l *PrecomputableMaxouts) NO() int { return l.c.out[0] }

// NP returns the number of pieces.
func (l *PrecomputableMaxouts) NP() int { return l.c.out[1] }

// NF returns the number of feature slots.
func (l *PrecomputableMaxouts) NF() int { return l.c.nF }

// NI returns the input width (0 until resolved).
func (l *PrecomputableMaxouts) NI() int { return l.c.nI }

// Dims reports the input width and the output row width (nF*nO*nP).
func (l *PrecomputableMaxouts) Dims() (nI, nO int) {
	return l.c.nI, l.c.nF * l.c.outWidth()
}

// ResolveInput fixes nI before the first forward call.
func (l *PrecomputableMaxouts) ResolveInput(nI int) error {
	return l.c.resolveInput(nI)
}

// Initialize allocates W and b without data.
func (l *PrecomputableMaxouts) Initialize() error {
	return l.c.materialize()
}

// W returns the weights (nF, nO, nP, nI). Nil before allocation.
func (l *PrecomputableMaxouts) W() *tensor.Array { return paramValue(l.c.params, "W") }

// B returns the bias (nO, nP). Nil before allocation.
func (l *PrecomputableMaxouts) B() *tensor.Array { return paramValue(l.c.params, "b") }

// Begin computes Y (batch, nF, nO, nP) and the selector-driven backprop.
func (l *PrecomputableMaxouts) Begin(x *tensor.Array) (*tensor.Array, *PrecomputedBackprop, error) {
	y, err := l.c.begin(x)
	if err != nil {
		return nil, nil, err
	}
	return y, &PrecomputedBackprop{c: l.c, x: x}, nil
}

// Forward is the plain layer face; backward takes (batch, nF, nO, nP).
func (l *PrecomputableMaxouts) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	return l.c.forward(x)
}
