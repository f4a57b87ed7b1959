// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the arrays layers compute on and the Engine
// interface that backends implement.
//
// # Overview
//
// Layerkit layers never touch a concrete backend. They receive an Engine and
// allocate, multiply, concatenate and scatter through it:
//   - Array: a dense float32 array in row-major order
//   - Keys: an integer feature matrix, one row per token
//   - Ragged: a flattened batch of variable-length sequences
//   - Engine: the numeric capability, implemented by backend/cpu and
//     backend/webgpu
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/layerkit/backend/cpu"
//	    "github.com/born-ml/layerkit/tensor"
//	)
//
//	func main() {
//	    e := cpu.New()
//
//	    a := e.Alloc(tensor.Shape{2, 3})
//	    e.Uniform(a, 0.1)
//	    b := e.MatMul(a, a, false, true) // (2, 2)
//	}
//
// # Sequences
//
// Variable-length sequences are flattened into one buffer so that row-wise
// layers run once per batch. Flatten records the sequence sizes in a
// Lengths value and Unflatten uses it to split the result again:
//
//	flat, lengths, err := tensor.Flatten(e, seqs, 0)
//	// ... run a row-wise layer on flat ...
//	back, err := tensor.Unflatten(e, out, lengths)
//
// Optional pad rows keep sliding windows from crossing sequence boundaries,
// see PadMode.
package tensor
