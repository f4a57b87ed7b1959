package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// ErrUnresolvedDimension is returned when a layer must allocate its
// parameters but a dimension it cannot infer from data (usually the output
// width or the feature count) is still unset.
var ErrUnresolvedDimension = errors.New("unresolved dimension")

// Parameter is a named, shaped view into a layer's parameter memory.
//
// Value and Grad alias the flat buffers of the owning Params, so writing
// through them is visible to the optimizer and the other way round.
type Parameter struct {
	name   string
	shape  tensor.Shape
	offset int
	value  *tensor.Array
	grad   *tensor.Array
}

// Name returns the parameter name (e.g. "W", "b").
func (p *Parameter) Name() string {
	return p.name
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.shape
}

// Value returns the parameter values. Nil before allocation.
func (p *Parameter) Value() *tensor.Array {
	return p.value
}

// Grad returns the accumulated gradient. Nil before allocation.
func (p *Parameter) Grad() *tensor.Array {
	return p.grad
}

// Params is the parameter memory of one layer: one flat weight buffer, one
// flat gradient buffer of the same length, and named views into both.
//
// Shapes are declared first and the memory is allocated once, when the
// layer has seen enough data to know every dimension. After that the layout
// never changes. The flat buffers are what the layer lends to the
// optimizer, keyed by ID.
//
// Example:
//
//	p := nn.NewParams(engine)
//	p.Declare("W", tensor.Shape{nO, nI})
//	p.Declare("b", tensor.Shape{nO})
//	p.Allocate()
//	w := p.Get("W").Value()
type Params struct {
	id      layer.ID
	engine  tensor.Engine
	params  []*Parameter
	byName  map[string]*Parameter
	weights []float32
	grads   []float32
	ready   bool
}

// NewParams creates an empty parameter memory with a fresh ID.
func NewParams(e tensor.Engine) *Params {
	return &Params{
		id:     layer.NextID(),
		engine: e,
		byName: make(map[string]*Parameter),
	}
}

// ID returns the optimizer key of this memory.
func (p *Params) ID() layer.ID {
	return p.id
}

// Declare adds a parameter of the given shape.
// Panics if called after Allocate or with a duplicate name.
func (p *Params) Declare(name string, shape tensor.Shape) {
	if p.ready {
		panic(fmt.Sprintf("Params.Declare(%q): memory already allocated", name))
	}
	if _, ok := p.byName[name]; ok {
		panic(fmt.Sprintf("Params.Declare(%q): duplicate parameter", name))
	}
	param := &Parameter{name: name, shape: shape.Clone()}
	p.params = append(p.params, param)
	p.byName[name] = param
}

// Allocate lays out every declared parameter in one zeroed weight buffer
// and one zeroed gradient buffer. Calling it again is a no-op.
func (p *Params) Allocate() {
	if p.ready {
		return
	}
	total := 0
	for _, param := range p.params {
		param.offset = total
		total += param.shape.NumElements()
	}
	p.weights = make([]float32, total)
	p.grads = make([]float32, total)
	for _, param := range p.params {
		n := param.shape.NumElements()
		param.value = mustWrap(p.weights[param.offset:param.offset+n], param.shape, p.engine.Device())
		param.grad = mustWrap(p.grads[param.offset:param.offset+n], param.shape, p.engine.Device())
	}
	p.ready = true
}

// Allocated reports whether Allocate has run.
func (p *Params) Allocated() bool {
	return p.ready
}

// Get returns the named parameter, or nil if it was never declared.
func (p *Params) Get(name string) *Parameter {
	return p.byName[name]
}

// Parameters returns all parameters in declaration order.
func (p *Params) Parameters() []*Parameter {
	return p.params
}

// Weights returns the flat weight buffer (nil before allocation).
func (p *Params) Weights() []float32 {
	return p.weights
}

// Gradient returns the flat gradient buffer (nil before allocation).
func (p *Params) Gradient() []float32 {
	return p.grads
}

// ZeroGrad clears the accumulated gradient.
func (p *Params) ZeroGrad() {
	clear(p.grads)
}

// Update hands both flat buffers to opt. A nil opt leaves the gradient
// accumulated for a later update.
func (p *Params) Update(opt layer.Optimizer) {
	if opt == nil || !p.ready {
		return
	}
	opt.Update(p.weights, p.grads, p.id)
}

func mustWrap(data []float32, shape tensor.Shape, device tensor.Device) *tensor.Array {
	a, err := tensor.Wrap(data, shape, device)
	if err != nil {
		panic(err)
	}
	return a
}
