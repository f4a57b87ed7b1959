// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the parameterised layers of layerkit.
//
// # Overview
//
// All layers implement layer.Layer and own their parameters through a Params
// block. Widths left at 0 are inferred from the first input or from the
// preceding layer when chained.
//
// Dense layers:
//   - Affine: y = x @ W.T + b
//   - Maxout: the largest of nP affine pieces per unit
//   - LayerNorm: row normalisation with learned gain and bias
//   - Softmax: affine followed by a row softmax
//
// Precomputable layers, for consumers that score many states over the same
// tokens:
//   - PrecomputableAffine: Y (batch, nF, nO)
//   - PrecomputableMaxouts: Y (batch, nF, nO, nP)
//
// Their Begin method returns a PrecomputedBackprop whose backward takes the
// gradient of selected, summed feature slots instead of the full output.
//
// Sequence helpers:
//   - HashEmbed: vocabulary-free embeddings over hashed feature keys
//   - ExtractWindow: concatenates neighbouring rows
//   - SumPool, MeanPool: reduce every sequence to one row
//
// # Example
//
//	e := cpu.NewWithSeed(0)
//	model := layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](
//	    nn.NewMaxout(e, 64, 0, 3),
//	    nn.NewSoftmax(e, 10, 0),
//	)
//	probs, bp, err := model.Forward(x, true)
//	dProbs, loss, err := nn.CategoricalCrossEntropy(e, probs, truths)
//	_, err = bp.Backward(dProbs, opt)
package nn
