// Package layer defines the forward/backward layer contract and the
// combinators that compose layers while keeping gradients correct.
//
// A Layer computes its output together with a Backprop object that captures
// whatever the backward pass needs. Calling Backward on it returns the input
// gradient and accumulates parameter gradients, optionally handing them to
// an Optimizer:
//
//	y, bp, err := model.Forward(x, true)
//	if err != nil {
//	    return err
//	}
//	dX, err := bp.Backward(lossGradient(y), sgd)
//
// There is no tape and no automatic differentiation: every layer derives its
// own backward pass, and combinators thread them in reverse order.
package layer

import (
	"reflect"
	"sync/atomic"
)

// ID identifies a parameterised layer for the lifetime of the process.
// Optimizers key their per-parameter state (momentum, moments) on it.
type ID uint64

var lastID atomic.Uint64

// NextID returns a fresh, process-unique ID.
func NextID() ID {
	return ID(lastID.Add(1))
}

// Optimizer receives a layer's flat weight and gradient buffers during a
// backward pass. Both slices are lent, not copied: the optimizer updates
// weights in place and owns the accumulated gradient afterwards (it usually
// zeroes it).
type Optimizer interface {
	Update(weights, gradient []float32, key ID)
}

// OptimizerFunc adapts a function to the Optimizer interface.
type OptimizerFunc func(weights, gradient []float32, key ID)

// Update calls f.
func (f OptimizerFunc) Update(weights, gradient []float32, key ID) {
	f(weights, gradient, key)
}

// Backprop is the backward half of a forward call.
//
// Backward maps the gradient of the output to the gradient of the input.
// A nil (absent) input gradient means the layer has no differentiable path
// back to its input; it is not an error. Passing a nil Optimizer only
// accumulates parameter gradients.
type Backprop[Out, In any] interface {
	Backward(dY Out, opt Optimizer) (In, error)
}

// BackpropFunc adapts a closure to the Backprop interface.
type BackpropFunc[Out, In any] func(dY Out, opt Optimizer) (In, error)

// Backward calls f.
func (f BackpropFunc[Out, In]) Backward(dY Out, opt Optimizer) (In, error) {
	return f(dY, opt)
}

// Layer is a differentiable computation from In to Out.
//
// Forward returns the output and the Backprop for it. train is false at
// inference time; layers may then skip work only needed for backward.
type Layer[In, Out any] interface {
	Forward(x In, train bool) (Out, Backprop[Out, In], error)
}

// Func adapts a forward function to the Layer interface.
type Func[In, Out any] func(x In, train bool) (Out, Backprop[Out, In], error)

// Forward calls f.
func (f Func[In, Out]) Forward(x In, train bool) (Out, Backprop[Out, In], error) {
	return f(x, train)
}

// Layerize turns a forward function into a Layer.
func Layerize[In, Out any](forward func(x In, train bool) (Out, Backprop[Out, In], error)) Layer[In, Out] {
	return Func[In, Out](forward)
}

// Noop returns the identity layer.
func Noop[T any]() Layer[T, T] {
	return Func[T, T](func(x T, _ bool) (T, Backprop[T, T], error) {
		return x, BackpropFunc[T, T](func(dY T, _ Optimizer) (T, error) {
			return dY, nil
		}), nil
	})
}

// Shaped is implemented by layers that know their input and output widths.
// Zero means not resolved yet.
type Shaped interface {
	Dims() (nI, nO int)
}

// InputResolver is implemented by layers whose input width can be fixed
// before the first forward call.
type InputResolver interface {
	ResolveInput(nI int) error
}

// IsAbsent reports whether g is an absent gradient: a nil interface, or a
// nil pointer, slice or map.
func IsAbsent[T any](g T) bool {
	v := reflect.ValueOf(any(g))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
