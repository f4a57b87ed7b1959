package tensor

// TensorDot contracts a and b over the paired axes (numpy tensordot).
//
// The result has a's free axes followed by b's free axes, in their original
// order. Contraction is lowered to a single engine MatMul: contracted axes
// that are already leading (for a) or trailing (for b) become a transpose
// flag, anything else goes through Engine.Transpose first.
//
// Example (precomputed affine forward):
//
//	// X: (b, i), W: (f, o, i) -> Y: (b, f, o)
//	y, err := tensor.TensorDot(e, x, w, []int{1}, []int{2})
func TensorDot(e Engine, a, b *Array, axesA, axesB []int) (*Array, error) {
	sa, sb := a.Shape(), b.Shape()
	if len(axesA) != len(axesB) {
		return nil, Mismatch("tensordot: %d axes of %v paired with %d axes of %v", len(axesA), sa, len(axesB), sb)
	}

	k := 1
	for i := range axesA {
		if axesA[i] < 0 || axesA[i] >= len(sa) || axesB[i] < 0 || axesB[i] >= len(sb) {
			return nil, Mismatch("tensordot: axis pair (%d, %d) out of range for %v and %v", axesA[i], axesB[i], sa, sb)
		}
		if sa[axesA[i]] != sb[axesB[i]] {
			return nil, Mismatch("tensordot: axis %d of %v (%d) != axis %d of %v (%d)",
				axesA[i], sa, sa[axesA[i]], axesB[i], sb, sb[axesB[i]])
		}
		k *= sa[axesA[i]]
	}

	freeA := freeAxes(len(sa), axesA)
	freeB := freeAxes(len(sb), axesB)

	outShape := make(Shape, 0, len(freeA)+len(freeB))
	m, n := 1, 1
	for _, ax := range freeA {
		outShape = append(outShape, sa[ax])
		m *= sa[ax]
	}
	for _, ax := range freeB {
		outShape = append(outShape, sb[ax])
		n *= sb[ax]
	}

	var a2 *Array
	transA := false
	switch {
	case isIdentity(append(append([]int{}, freeA...), axesA...)):
		a2 = a.MustReshape(m, k)
	case isIdentity(append(append([]int{}, axesA...), freeA...)):
		a2 = a.MustReshape(k, m)
		transA = true
	default:
		a2 = e.Transpose(a, append(append([]int{}, freeA...), axesA...)...).MustReshape(m, k)
	}

	var b2 *Array
	transB := false
	switch {
	case isIdentity(append(append([]int{}, axesB...), freeB...)):
		b2 = b.MustReshape(k, n)
	case isIdentity(append(append([]int{}, freeB...), axesB...)):
		b2 = b.MustReshape(n, k)
		transB = true
	default:
		b2 = e.Transpose(b, append(append([]int{}, axesB...), freeB...)...).MustReshape(k, n)
	}

	out := e.MatMul(a2, b2, transA, transB)
	return out.Reshape(outShape...)
}

// freeAxes returns the axes of an ndim array not listed in used, in order.
func freeAxes(ndim int, used []int) []int {
	taken := make([]bool, ndim)
	for _, ax := range used {
		taken[ax] = true
	}
	free := make([]int, 0, ndim-len(used))
	for ax := 0; ax < ndim; ax++ {
		if !taken[ax] {
			free = append(free, ax)
		}
	}
	return free
}

func isIdentity(perm []int) bool {
	for i, ax := range perm {
		if ax != i {
			return false
		}
	}
	return true
}
