package tensor

// Engine is the numeric array capability every layer computes through.
//
// Layers never touch a concrete backend; they receive an Engine and issue
// allocation, contraction, concatenation, splitting, elementwise arithmetic
// and initialisation against it. Engines panic on malformed arguments (wrong
// ranks, mismatched element counts); layers validate shapes before calling.
//
// Implementations:
//   - CPU: pure Go, BLAS-backed matrix products (internal/backend/cpu)
//   - WebGPU: WGSL compute shaders (internal/backend/webgpu)
type Engine interface {
	// Metadata
	Name() string
	Device() Device

	// Alloc returns a zero-filled array of the given shape.
	Alloc(shape Shape) *Array

	// MatMul computes op(a) @ op(b) for 2D arrays, where op transposes when
	// the matching flag is set.
	MatMul(a, b *Array, transA, transB bool) *Array

	// Transpose permutes axes. With no axes it reverses them.
	Transpose(x *Array, axes ...int) *Array

	// Element-wise operations
	Add(a, b *Array) *Array          // same shape
	AddInPlace(dst, src *Array)      // dst += src, same element count
	AddBroadcast(x, b *Array) *Array // b's shape is a suffix of x's shape
	SumLeading(x *Array) *Array      // sum over axis 0

	// Manipulation
	Concat(xs []*Array, axis int) *Array
	Split(x *Array, sizes []int, axis int) []*Array

	// Indexing along the leading axis. Negative rows select zeros / are skipped.
	GatherRows(x *Array, rows []int) *Array
	ScatterAddRows(dst, src *Array, rows []int)

	// Fill and initialisation
	Fill(x *Array, value float32)
	SumOfSquares(x *Array) float64
	Uniform(x *Array, bound float64)
	XavierUniform(x *Array, fanIn, fanOut int)
}
