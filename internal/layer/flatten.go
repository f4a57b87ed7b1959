package layer

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Flatten returns a layer joining a batch of sequences into one array, with
// pad zero rows at both ends. Backward splits the gradient back per sequence.
func Flatten(e tensor.Engine, pad int) Layer[[]*tensor.Array, *tensor.Array] {
	return Func[[]*tensor.Array, *tensor.Array](func(seqs []*tensor.Array, _ bool) (*tensor.Array, Backprop[*tensor.Array, []*tensor.Array], error) {
		flat, lengths, err := tensor.Flatten(e, seqs, pad)
		if err != nil {
			return nil, nil, err
		}
		return flat, BackpropFunc[*tensor.Array, []*tensor.Array](func(dY *tensor.Array, _ Optimizer) ([]*tensor.Array, error) {
			if dY == nil {
				return nil, nil
			}
			return tensor.Unflatten(e, dY, lengths)
		}), nil
	})
}

// FlattenAddLengths is Flatten that also returns the length record, for
// layers that need sequence boundaries (pooling, windowing).
func FlattenAddLengths(e tensor.Engine, pad int) Layer[[]*tensor.Array, *tensor.Ragged] {
	return Func[[]*tensor.Array, *tensor.Ragged](func(seqs []*tensor.Array, _ bool) (*tensor.Ragged, Backprop[*tensor.Ragged, []*tensor.Array], error) {
		flat, lengths, err := tensor.Flatten(e, seqs, pad)
		if err != nil {
			return nil, nil, err
		}
		out := &tensor.Ragged{Data: flat, Lengths: lengths}
		return out, BackpropFunc[*tensor.Ragged, []*tensor.Array](func(dY *tensor.Ragged, _ Optimizer) ([]*tensor.Array, error) {
			if dY == nil || dY.Data == nil {
				return nil, nil
			}
			return tensor.Unflatten(e, dY.Data, lengths)
		}), nil
	})
}

// WithFlatten lifts a row-wise layer to batches of sequences: the batch is
// flattened (with pad rows placed by mode), inner runs once on the flat
// array, and its output is split back into sequences.
//
// inner must keep the number of rows.
func WithFlatten(e tensor.Engine, inner Layer[*tensor.Array, *tensor.Array], pad int, mode tensor.PadMode) Layer[[]*tensor.Array, []*tensor.Array] {
	return Func[[]*tensor.Array, []*tensor.Array](func(seqs []*tensor.Array, train bool) ([]*tensor.Array, Backprop[[]*tensor.Array, []*tensor.Array], error) {
		flat, lengths, err := tensor.FlattenPadded(e, seqs, pad, mode)
		if err != nil {
			return nil, nil, err
		}
		y, bp, err := inner.Forward(flat, train)
		if err != nil {
			return nil, nil, err
		}
		out, err := tensor.Unflatten(e, y, lengths)
		if err != nil {
			return nil, nil, fmt.Errorf("with flatten: %w", err)
		}

		return out, BackpropFunc[[]*tensor.Array, []*tensor.Array](func(dY []*tensor.Array, opt Optimizer) ([]*tensor.Array, error) {
			dFlat, _, err := tensor.FlattenPadded(e, dY, pad, mode)
			if err != nil {
				return nil, fmt.Errorf("with flatten backward: %w", err)
			}
			dX, err := bp.Backward(dFlat, opt)
			if err != nil || dX == nil {
				return nil, err
			}
			return tensor.Unflatten(e, dX, lengths)
		}), nil
	})
}

// WithFlattenKeys is WithFlatten for layers that start from feature keys,
// such as embedding tables. Pad rows carry key 0.
//
// Keys have no gradient, so the returned Backprop always yields nil after
// running inner's backward pass for its parameter updates.
func WithFlattenKeys(e tensor.Engine, inner Layer[*tensor.Keys, *tensor.Array], pad int, mode tensor.PadMode) Layer[[]*tensor.Keys, []*tensor.Array] {
	return Func[[]*tensor.Keys, []*tensor.Array](func(seqs []*tensor.Keys, train bool) ([]*tensor.Array, Backprop[[]*tensor.Array, []*tensor.Keys], error) {
		flat, lengths, err := tensor.FlattenKeys(seqs, pad, mode)
		if err != nil {
			return nil, nil, err
		}
		y, bp, err := inner.Forward(flat, train)
		if err != nil {
			return nil, nil, err
		}
		out, err := tensor.Unflatten(e, y, lengths)
		if err != nil {
			return nil, nil, fmt.Errorf("with flatten: %w", err)
		}

		return out, BackpropFunc[[]*tensor.Array, []*tensor.Keys](func(dY []*tensor.Array, opt Optimizer) ([]*tensor.Keys, error) {
			dFlat, _, err := tensor.FlattenPadded(e, dY, pad, mode)
			if err != nil {
				return nil, fmt.Errorf("with flatten backward: %w", err)
			}
			if _, err := bp.Backward(dFlat, opt); err != nil {
				return nil, err
			}
			return nil, nil
		}), nil
	})
}
