package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Chained runs first, then second.
type Chained[A, B, C any] struct {
	first  Layer[A, B]
	second Layer[B, C]
}

// Chain composes first and second: second consumes first's output.
//
// When both layers report their widths (Shaped) the composition is checked
// now and a mismatch is returned as tensor.ErrDimensionMismatch. When second
// has no input width yet and can take one (InputResolver), it is given
// first's output width. Anything that cannot be checked here surfaces as a
// mismatch on the first forward call.
//
// Example:
//
//	encoder, err := layer.Chain(embed, mix)
func Chain[A, B, C any](first Layer[A, B], second Layer[B, C]) (*Chained[A, B, C], error) {
	if f, ok := first.(Shaped); ok {
		_, fO := f.Dims()
		sI := 0
		if s, ok := second.(Shaped); ok {
			sI, _ = s.Dims()
		}
		switch {
		case fO > 0 && sI > 0 && fO != sI:
			return nil, tensor.Mismatch("chain: output width %d feeds input width %d", fO, sI)
		case fO > 0 && sI == 0:
			if r, ok := second.(InputResolver); ok {
				if err := r.ResolveInput(fO); err != nil {
					return nil, fmt.Errorf("chain: %w", err)
				}
			}
		}
	}
	return &Chained[A, B, C]{first: first, second: second}, nil
}

// MustChain is Chain for architectures fixed at compile time.
// Panics on error.
func MustChain[A, B, C any](first Layer[A, B], second Layer[B, C]) *Chained[A, B, C] {
	c, err := Chain(first, second)
	if err != nil {
		panic(err)
	}
	return c
}

// Sequence chains any number of same-typed layers, left to right.
// With no layers it is the identity.
func Sequence[T any](layers ...Layer[T, T]) (Layer[T, T], error) {
	if len(layers) == 0 {
		return Noop[T](), nil
	}
	out := layers[0]
	for i, l := range layers[1:] {
		c, err := Chain(out, l)
		if err != nil {
			return nil, fmt.Errorf("sequence layer %d: %w", i+1, err)
		}
		out = c
	}
	return out, nil
}

// Dims reports first's input width and second's output width, when known.
func (c *Chained[A, B, C]) Dims() (nI, nO int) {
	if f, ok := c.first.(Shaped); ok {
		nI, _ = f.Dims()
	}
	if s, ok := c.second.(Shaped); ok {
		_, nO = s.Dims()
	}
	return nI, nO
}

// ResolveInput forwards to the first layer.
func (c *Chained[A, B, C]) ResolveInput(nI int) error {
	if r, ok := c.first.(InputResolver); ok {
		return r.ResolveInput(nI)
	}
	return nil
}

// Forward threads x through first and then second.
func (c *Chained[A, B, C]) Forward(x A, train bool) (C, Backprop[C, A], error) {
	var zero C
	h, bpFirst, err := c.first.Forward(x, train)
	if err != nil {
		return zero, nil, err
	}
	y, bpSecond, err := c.second.Forward(h, train)
	if err != nil {
		return zero, nil, err
	}

	return y, BackpropFunc[C, A](func(dY C, opt Optimizer) (A, error) {
		var none A
		dH, err := bpSecond.Backward(dY, opt)
		if err != nil {
			return none, err
		}
		if IsAbsent(dH) {
			return none, nil
		}
		return bpFirst.Backward(dH, opt)
	}), nil
}
