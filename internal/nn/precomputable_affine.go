package nn

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// PrecomputableAffine projects every input row through nF feature slots at
// once, so that a consumer (typically a transition-based parser) can later
// pick and sum the slots it needs without recomputing the projection.
//
// Shapes:
//   - X: (batch, nI)
//   - W: (nF, nO, nI)
//   - b: (nO), broadcast over the feature axis
//   - Y: (batch, nF, nO), Y[b,f,o] = Σ_i X[b,i] W[f,o,i] + b[o]
//
// nI may be left 0 and is taken from the first input. W is Xavier
// initialised over its (nO, nF*nI) view the first time it is allocated,
// but only while it is all zeros; b starts at zero.
//
// Example:
//
//	lower := nn.NewPrecomputableAffine(engine, 64, 0, 13)
//	yf, bp, err := lower.Begin(tokens)          // (n, 13, 64)
//	// ... select and sum feature slots into dY (m, 64) with ids (m, 13)
//	dXf, err := bp.Backward(dY, ids, optimizer) // (m, 13, nI)
//	dX, err := bp.InputGradient(dXf, ids)       // (n, nI)
type PrecomputableAffine struct {
	c *contraction
}

// NewPrecomputableAffine creates the layer. nO and nF must be known before
// the first forward call; nI may be 0.
func NewPrecomputableAffine(e tensor.Engine, nO, nI, nF int) *PrecomputableAffine {
	return &PrecomputableAffine{
		c: newContraction("PrecomputableAffine", e, nF, nI, tensor.Shape{nO}, affineFan),
	}
}

// affineFan views W (nF, nO, nI) as (nO, nF*nI).
func affineFan(w tensor.Shape) (rows, cols int) {
	return w[1], w[0] * w[2]
}

// ID returns the optimizer key of the layer's parameters.
func (l *PrecomputableAffine) ID() layer.ID { return l.c.params.ID() }

// Params returns the layer's parameter memory.
func (l *PrecomputableAffine) Params() *Params { return l.c.params }

// NO returns the output width.
func (l *PrecomputableAffine) NO() int { return l.c.out[0] }

// NF returns the number of feature slots.
func (l *PrecomputableAffine) NF() int { return l.c.nF }

// NI returns the input width (0 until resolved).
func (l *PrecomputableAffine) NI() int { return l.c.nI }

// Dims reports the input width and the row width of the output (nF*nO).
func (l *PrecomputableAffine) Dims() (nI, nO int) {
	return l.c.nI, l.c.nF * l.c.outWidth()
}

// ResolveInput fixes nI before the first forward call.
func (l *PrecomputableAffine) ResolveInput(nI int) error {
	return l.c.resolveInput(nI)
}

// Initialize allocates W and b (running the init guard) without data.
// Returns ErrUnresolvedDimension if any dimension is still unknown.
func (l *PrecomputableAffine) Initialize() error {
	return l.c.materialize()
}

// W returns the weights (nF, nO, nI). Nil before allocation.
func (l *PrecomputableAffine) W() *tensor.Array { return paramValue(l.c.params, "W") }

// B returns the bias (nO). Nil before allocation.
func (l *PrecomputableAffine) B() *tensor.Array { return paramValue(l.c.params, "b") }

// Begin computes Y (batch, nF, nO) and the selector-driven backprop.
func (l *PrecomputableAffine) Begin(x *tensor.Array) (*tensor.Array, *PrecomputedBackprop, error) {
	y, err := l.c.begin(x)
	if err != nil {
		return nil, nil, err
	}
	return y, &PrecomputedBackprop{c: l.c, x: x}, nil
}

// Forward is the plain layer face: same output as Begin, but backward takes
// the full (batch, nF, nO) gradient and returns dX (batch, nI).
func (l *PrecomputableAffine) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	return l.c.forward(x)
}

func paramValue(p *Params, name string) *tensor.Array {
	if param := p.Get(name); param != nil {
		return param.Value()
	}
	return nil
}
