package nn

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Maxout computes nP affine candidates per output unit and keeps the largest.
//
// Shapes:
//   - x: [batch_size, nI]
//   - W: [nO, nP, nI]
//   - b: [nO, nP]
//   - y: [batch_size, nO]
//
// The gradient flows only through the winning piece of every unit.
type Maxout struct {
	engine     tensor.Engine
	nO, nP, nI int
	params     *Params
}

// NewMaxout creates a Maxout layer. nP <= 0 selects DefaultPieces; nI may
// be 0 to infer it from data.
func NewMaxout(e tensor.Engine, nO, nI, nP int) *Maxout {
	if nP <= 0 {
		nP = DefaultPieces
	}
	return &Maxout{engine: e, nO: nO, nP: nP, nI: nI, params: NewParams(e)}
}

// Params returns the layer's parameter memory.
func (m *Maxout) Params() *Params { return m.params }

// Dims reports (nI, nO).
func (m *Maxout) Dims() (nI, nO int) { return m.nI, m.nO }

// ResolveInput fixes nI.
func (m *Maxout) ResolveInput(nI int) error {
	return resolveWidth("Maxout", &m.nI, nI)
}

// Initialize allocates W and b without data.
func (m *Maxout) Initialize() error {
	if m.nI <= 0 {
		return fmt.Errorf("Maxout: nI: %w", ErrUnresolvedDimension)
	}
	return m.materialize()
}

// W returns the weights. Nil before allocation.
func (m *Maxout) W() *tensor.Array { return paramValue(m.params, "W") }

func (m *Maxout) materialize() error {
	if m.params.Allocated() {
		return nil
	}
	if m.nO <= 0 {
		return fmt.Errorf("Maxout: nO: %w", ErrUnresolvedDimension)
	}
	m.params.Declare("W", tensor.Shape{m.nO, m.nP, m.nI})
	m.params.Declare("b", tensor.Shape{m.nO, m.nP})
	m.params.Allocate()
	XavierIfZero(m.engine, m.W(), m.nO*m.nP, m.nI)
	return nil
}

// Forward computes max over pieces of x @ W.T + b.
func (m *Maxout) Forward(x *tensor.Array, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	if len(x.Shape()) != 2 {
		return nil, nil, tensor.Mismatch("Maxout: expected 2D input, got %v", x.Shape())
	}
	if err := m.ResolveInput(x.Shape()[1]); err != nil {
		return nil, nil, err
	}
	if err := m.materialize(); err != nil {
		return nil, nil, err
	}

	n, nO, nP := x.Rows(), m.nO, m.nP
	w2 := m.W().MustReshape(nO*nP, m.nI)
	b2 := paramValue(m.params, "b").MustReshape(nO * nP)
	z := m.engine.AddBroadcast(m.engine.MatMul(x, w2, false, true), b2)

	y := m.engine.Alloc(tensor.Shape{n, nO})
	which := make([]int, n*nO)
	zd, yd := z.Data(), y.Data()
	for i := 0; i < n*nO; i++ {
		best := 0
		pieces := zd[i*nP : (i+1)*nP]
		for p := 1; p < nP; p++ {
			if pieces[p] > pieces[best] {
				best = p
			}
		}
		which[i] = best
		yd[i] = pieces[best]
	}

	return y, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		if !dY.Shape().Equal(y.Shape()) {
			return nil, tensor.Mismatch("Maxout backward: gradient %v for output %v", dY.Shape(), y.Shape())
		}
		dZ := m.engine.Alloc(tensor.Shape{n, nO * nP})
		dzd := dZ.Data()
		for i, g := range dY.Data() {
			dzd[i*nP+which[i]] = g
		}
		dX := m.engine.MatMul(dZ, w2, false, false)
		m.engine.AddInPlace(m.params.Get("W").Grad(), m.engine.MatMul(dZ, x, true, false))
		m.engine.AddInPlace(m.params.Get("b").Grad(), m.engine.SumLeading(dZ))
		m.params.Update(opt)
		return dX, nil
	}), nil
}
