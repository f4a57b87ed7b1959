package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/layerkit/internal/parallel"
	"github.com/born-ml/layerkit/internal/tensor"
)

// rangeElems splits an elementwise loop over n items with the engine's
// parallel config.
func (cpu *CPUBackend) rangeElems(n int, f func(lo, hi int)) {
	parallel.Range(n, f, cpu.par)
}

func vec(a *tensor.Array) blas32.Vector {
	return blas32.Vector{N: a.NumElements(), Inc: 1, Data: a.Data()}
}

// Add returns a + b for arrays of the same shape.
func (cpu *CPUBackend) Add(a, b *tensor.Array) *tensor.Array {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("add: shapes %v and %v differ", a.Shape(), b.Shape()))
	}
	result := cpu.Alloc(a.Shape())
	x, y, dst := a.Data(), b.Data(), result.Data()
	cpu.rangeElems(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = x[i] + y[i]
		}
	})
	return result
}

// AddInPlace performs dst += src (SAXPY). Only element counts must agree.
func (cpu *CPUBackend) AddInPlace(dst, src *tensor.Array) {
	if dst.NumElements() != src.NumElements() {
		panic(fmt.Sprintf("add in place: %v += %v", dst.Shape(), src.Shape()))
	}
	blas32.Axpy(1, vec(src), vec(dst))
}

// AddBroadcast returns x + b where b's shape is a suffix of x's shape.
func (cpu *CPUBackend) AddBroadcast(x, b *tensor.Array) *tensor.Array {
	if !x.Shape().HasSuffix(b.Shape()) {
		panic(fmt.Sprintf("add broadcast: %v is not a suffix of %v", b.Shape(), x.Shape()))
	}
	result := cpu.Alloc(x.Shape())
	src, bias, dst := x.Data(), b.Data(), result.Data()
	n := len(bias)
	if n == 0 {
		return result
	}
	cpu.rangeElems(len(dst)/n, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			row := dst[r*n : (r+1)*n]
			in := src[r*n : (r+1)*n]
			for j := range row {
				row[j] = in[j] + bias[j]
			}
		}
	})
	return result
}

// SumLeading sums x over its first axis.
func (cpu *CPUBackend) SumLeading(x *tensor.Array) *tensor.Array {
	shape := x.Shape()
	if len(shape) == 0 {
		panic("sum leading: scalar input")
	}
	result := cpu.Alloc(shape.Inner())
	out := vec(result)
	for r := 0; r < x.Rows(); r++ {
		blas32.Axpy(1, vec(x.RowSlice(r, r+1)), out)
	}
	return result
}

// Fill sets every element of x to value.
func (cpu *CPUBackend) Fill(x *tensor.Array, value float32) {
	data := x.Data()
	cpu.rangeElems(len(data), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			data[i] = value
		}
	})
}

// SumOfSquares returns the sum of x², accumulated in float64.
func (cpu *CPUBackend) SumOfSquares(x *tensor.Array) float64 {
	var sum float64
	for _, v := range x.Data() {
		sum += float64(v) * float64(v)
	}
	return sum
}
