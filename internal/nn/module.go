// Package nn implements the parameterised layers of layerkit.
//
// This package provides:
//   - Params/Parameter: flat, optimizer-visible parameter memory
//   - PrecomputableAffine, PrecomputableMaxouts: per-feature contraction layers
//   - Affine, Maxout, Softmax: dense layers
//   - LayerNorm, ExtractWindow, HashEmbed: encoder building blocks
//   - Logistic, SumPool, MeanPool: parameter-free transforms
//   - CategoricalCrossEntropy: loss gradient for Softmax outputs
//
// Every layer satisfies layer.Layer and computes its own backward pass;
// dimensions not given at construction are resolved from the first input.
package nn

// Trainable is implemented by every layer that owns parameters.
type Trainable interface {
	Params() *Params
}

// Initializer is implemented by layers that can allocate their parameters
// before seeing data, once every width is known.
type Initializer interface {
	Initialize() error
}

// CountParams returns the number of allocated weights across layers.
// Layers that have not seen data yet contribute nothing.
func CountParams(layers ...Trainable) int {
	n := 0
	for _, l := range layers {
		n += len(l.Params().Weights())
	}
	return n
}
