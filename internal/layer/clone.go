package layer

import "github.com/born-ml/layerkit/internal/tensor"

// Clone builds n independently parameterised copies of one architecture.
//
// build is called once per copy with the copy's index, so no parameters are
// shared between copies. Panics if n < 1.
func Clone[In, Out any](n int, build func(i int) Layer[In, Out]) []Layer[In, Out] {
	if n < 1 {
		panic("layer.Clone: n must be at least 1")
	}
	copies := make([]Layer[In, Out], n)
	for i := range copies {
		copies[i] = build(i)
	}
	return copies
}

// CloneChain chains n copies built by build.
func CloneChain[T any](n int, build func(i int) Layer[T, T]) (Layer[T, T], error) {
	return Sequence(Clone(n, build)...)
}

// CloneConcatenate runs n copies built by build side by side.
func CloneConcatenate[In any](e tensor.Engine, n int, build func(i int) Layer[In, *tensor.Array]) *Concatenated[In] {
	return Concatenate(e, Clone(n, build)...)
}
