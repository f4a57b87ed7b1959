package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// accumulate returns acc + g for gradients of any supported type, skipping
// absent values. Neither argument is modified.
func accumulate[T any](e tensor.Engine, acc, g T) (T, error) {
	if IsAbsent(g) {
		return acc, nil
	}
	if IsAbsent(acc) {
		return g, nil
	}

	var sum any
	switch a := any(acc).(type) {
	case *tensor.Array:
		b := any(g).(*tensor.Array)
		if !a.Shape().Equal(b.Shape()) {
			return acc, tensor.Mismatch("gradient %v + %v", a.Shape(), b.Shape())
		}
		sum = e.Add(a, b)
	case []*tensor.Array:
		b := any(g).([]*tensor.Array)
		if len(a) != len(b) {
			return acc, tensor.Mismatch("gradient list of %d + list of %d", len(a), len(b))
		}
		out := make([]*tensor.Array, len(a))
		for i := range a {
			s, err := accumulate(e, a[i], b[i])
			if err != nil {
				return acc, err
			}
			out[i] = s
		}
		sum = out
	case *tensor.Ragged:
		b := any(g).(*tensor.Ragged)
		d, err := accumulate(e, a.Data, b.Data)
		if err != nil {
			return acc, err
		}
		sum = &tensor.Ragged{Data: d, Lengths: a.Lengths}
	default:
		var zero T
		return zero, fmt.Errorf("cannot sum gradients of type %T", acc)
	}
	return sum.(T), nil
}
