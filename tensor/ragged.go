// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/layerkit/internal/tensor"
)

// PadMode selects where Flatten inserts zero rows.
type PadMode = tensor.PadMode

// Padding modes.
const (
	// PadEdges pads the start and end of the whole buffer.
	PadEdges = tensor.PadEdges
	// PadSequences pads before every sequence and after the last one.
	PadSequences = tensor.PadSequences
)

// Lengths records how a batch of sequences was flattened.
type Lengths = tensor.Lengths

// Ragged is a flattened batch together with its Lengths.
type Ragged = tensor.Ragged

// Flatten concatenates seqs along the first axis with pad zero rows at both
// edges of the buffer.
func Flatten(e Engine, seqs []*Array, pad int) (*Array, Lengths, error) {
	return tensor.Flatten(e, seqs, pad)
}

// FlattenPadded concatenates seqs with pad rows placed according to mode.
func FlattenPadded(e Engine, seqs []*Array, pad int, mode PadMode) (*Array, Lengths, error) {
	return tensor.FlattenPadded(e, seqs, pad, mode)
}

// Unflatten splits a flat buffer back into sequences, dropping pad rows.
func Unflatten(e Engine, x *Array, lengths Lengths) ([]*Array, error) {
	return tensor.Unflatten(e, x, lengths)
}

// FlattenKeys concatenates key matrices, padding with zero keys.
func FlattenKeys(seqs []*Keys, pad int, mode PadMode) (*Keys, Lengths, error) {
	return tensor.FlattenKeys(seqs, pad, mode)
}
