package cpu

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Transpose permutes the axes of x into a new array.
// With no axes the order is reversed.
func (cpu *CPUBackend) Transpose(x *tensor.Array, axes ...int) *tensor.Array {
	shape := x.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for a %dD array", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	result := cpu.Alloc(outShape)

	inStrides := shape.ComputeStrides()
	// srcStrides[i] is the input stride of output axis i.
	srcStrides := make([]int, ndim)
	for i, ax := range axes {
		srcStrides[i] = inStrides[ax]
	}

	src, dst := x.Data(), result.Data()
	cpu.rangeElems(len(dst), func(lo, hi int) {
		idx := unravel(lo, outShape)
		off := 0
		for i := range idx {
			off += idx[i] * srcStrides[i]
		}
		for j := lo; j < hi; j++ {
			dst[j] = src[off]
			// Advance the output multi-index and the source offset together.
			for i := ndim - 1; i >= 0; i-- {
				idx[i]++
				off += srcStrides[i]
				if idx[i] < outShape[i] {
					break
				}
				off -= idx[i] * srcStrides[i]
				idx[i] = 0
			}
		}
	})
	return result
}

// unravel converts a flat row-major offset into a multi-index.
func unravel(flat int, shape tensor.Shape) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 0 {
			return idx
		}
		idx[i] = flat % shape[i]
		flat /= shape[i]
	}
	return idx
}

// normAxis resolves a negative axis against ndim.
func normAxis(axis, ndim int, op string) int {
	if axis < 0 {
		axis += ndim
	}
	if axis < 0 || axis >= ndim {
		panic(fmt.Sprintf("%s: axis out of range for %dD array", op, ndim))
	}
	return axis
}

// Concat joins arrays along axis. All other dimensions must match.
// Negative axes count from the end.
func (cpu *CPUBackend) Concat(xs []*tensor.Array, axis int) *tensor.Array {
	if len(xs) == 0 {
		panic("concat: no arrays")
	}
	first := xs[0].Shape()
	axis = normAxis(axis, len(first), "concat")

	outShape := first.Clone()
	outShape[axis] = 0
	for i, x := range xs {
		s := x.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("concat: array %d has %d dims, expected %d", i, len(s), len(first)))
		}
		for d := range s {
			if d != axis && s[d] != first[d] {
				panic(fmt.Sprintf("concat: array %d has shape %v, incompatible with %v on axis %d", i, s, first, axis))
			}
		}
		outShape[axis] += s[axis]
	}

	result := cpu.Alloc(outShape)
	outer := tensor.Shape(first[:axis]).NumElements()
	dst := result.Data()
	pos := 0
	for o := 0; o < outer; o++ {
		for _, x := range xs {
			block := tensor.Shape(x.Shape()[axis:]).NumElements()
			copy(dst[pos:pos+block], x.Data()[o*block:(o+1)*block])
			pos += block
		}
	}
	return result
}

// Split cuts x along axis into pieces of the given sizes, which must sum to
// the axis length. Each piece is a fresh array.
func (cpu *CPUBackend) Split(x *tensor.Array, sizes []int, axis int) []*tensor.Array {
	shape := x.Shape()
	axis = normAxis(axis, len(shape), "split")

	total := 0
	for _, s := range sizes {
		if s < 0 {
			panic(fmt.Sprintf("split: negative size in %v", sizes))
		}
		total += s
	}
	if total != shape[axis] {
		panic(fmt.Sprintf("split: sizes %v do not sum to axis %d of %v", sizes, axis, shape))
	}

	inner := tensor.Shape(shape[axis+1:]).NumElements()
	outer := tensor.Shape(shape[:axis]).NumElements()
	rowBlock := shape[axis] * inner

	parts := make([]*tensor.Array, len(sizes))
	offset := 0
	src := x.Data()
	for i, s := range sizes {
		ps := shape.Clone()
		ps[axis] = s
		parts[i] = cpu.Alloc(ps)
		block := s * inner
		dst := parts[i].Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*block:(o+1)*block], src[o*rowBlock+offset:o*rowBlock+offset+block])
		}
		offset += block
	}
	return parts
}

// GatherRows returns x[rows] along the leading axis. A negative row selects
// a zero row.
func (cpu *CPUBackend) GatherRows(x *tensor.Array, rows []int) *tensor.Array {
	shape := x.Shape()
	if len(shape) == 0 {
		panic("gather: scalar input")
	}
	n := x.RowSize()
	result := cpu.Alloc(shape.WithRows(len(rows)))
	src, dst := x.Data(), result.Data()
	for i, r := range rows {
		if r < 0 {
			continue
		}
		if r >= shape[0] {
			panic(fmt.Sprintf("gather: row %d out of range for %d rows", r, shape[0]))
		}
		copy(dst[i*n:(i+1)*n], src[r*n:(r+1)*n])
	}
	return result
}

// ScatterAddRows adds src[i] into dst[rows[i]]. Repeated rows accumulate;
// negative rows are skipped.
func (cpu *CPUBackend) ScatterAddRows(dst, src *tensor.Array, rows []int) {
	if src.Rows() != len(rows) {
		panic(fmt.Sprintf("scatter: %d source rows for %d targets", src.Rows(), len(rows)))
	}
	n := dst.RowSize()
	if src.RowSize() != n {
		panic(fmt.Sprintf("scatter: row size %d into row size %d", src.RowSize(), n))
	}
	s, d := src.Data(), dst.Data()
	for i, r := range rows {
		if r < 0 {
			continue
		}
		if r >= dst.Rows() {
			panic(fmt.Sprintf("scatter: row %d out of range for %d rows", r, dst.Rows()))
		}
		row := d[r*n : (r+1)*n]
		for j, v := range s[i*n : (i+1)*n] {
			row[j] += v
		}
	}
}
