package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/layerkit/internal/tensor"
)

// MatMul computes op(a) @ op(b) with SGEMM.
//
// a and b must be 2D. With transA set, a is read as its transpose without
// being copied (same for b), which is how TensorDot avoids materialising
// transposes for leading/trailing contraction axes.
func (cpu *CPUBackend) MatMul(a, b *tensor.Array, transA, transB bool) *tensor.Array {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D arrays supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	if transA {
		m, k = k, m
	}
	kAlt, n := bShape[0], bShape[1]
	if transB {
		kAlt, n = n, kAlt
	}
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch %v (trans=%t) @ %v (trans=%t)", aShape, transA, bShape, transB))
	}

	result := cpu.Alloc(tensor.Shape{m, n})
	if m == 0 || n == 0 || k == 0 {
		return result
	}

	blas32.Gemm(
		transFlag(transA), transFlag(transB),
		1, general(a), general(b),
		0, blas32.General{Rows: m, Cols: n, Stride: n, Data: result.Data()},
	)
	return result
}

func transFlag(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// general views a 2D array as a BLAS matrix in its stored layout.
func general(a *tensor.Array) blas32.General {
	s := a.Shape()
	return blas32.General{Rows: s[0], Cols: s[1], Stride: s[1], Data: a.Data()}
}
