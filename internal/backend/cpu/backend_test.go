package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/layerkit/internal/parallel"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return NewWithSeed(42)
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func arange(shape ...int) *tensor.Array {
	s := tensor.Shape(shape)
	data := make([]float32, s.NumElements())
	for i := range data {
		data[i] = float32(i + 1)
	}
	a, err := tensor.FromSlice(data, s)
	if err != nil {
		panic(err)
	}
	return a
}

// naiveMatMul computes a @ b for row-major (m,k) and (k,n).
func naiveMatMul(a, b []float32, m, k, n int) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
	return c
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()
	a := arange(2, 3)
	b := arange(3, 4)
	want := naiveMatMul(a.Data(), b.Data(), 2, 3, 4)

	tests := []struct {
		name           string
		a, b           *tensor.Array
		transA, transB bool
	}{
		{"NoTrans", a, b, false, false},
		{"TransA", backend.Transpose(a), b, true, false},
		{"TransB", a, backend.Transpose(b), false, true},
		{"TransBoth", backend.Transpose(a), backend.Transpose(b), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := backend.MatMul(tt.a, tt.b, tt.transA, tt.transB)
			if !c.Shape().Equal(tensor.Shape{2, 4}) {
				t.Fatalf("Expected shape [2 4], got %v", c.Shape())
			}
			if !float32SliceEqual(c.Data(), want) {
				t.Errorf("Expected %v, got %v", want, c.Data())
			}
		})
	}
}

func TestCPUBackend_MatMul_ZeroSized(t *testing.T) {
	backend := newTestBackend()

	c := backend.MatMul(backend.Alloc(tensor.Shape{0, 3}), arange(3, 2), false, false)
	if !c.Shape().Equal(tensor.Shape{0, 2}) {
		t.Errorf("Expected shape [0 2], got %v", c.Shape())
	}

	c = backend.MatMul(backend.Alloc(tensor.Shape{2, 0}), backend.Alloc(tensor.Shape{0, 3}), false, false)
	if !float32SliceEqual(c.Data(), make([]float32, 6)) {
		t.Errorf("Expected zeros, got %v", c.Data())
	}
}

func TestCPUBackend_MatMul_ShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on mismatched inner dimensions")
		}
	}()
	newTestBackend().MatMul(arange(2, 3), arange(2, 3), false, false)
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()
	x := arange(2, 3, 4)

	y := backend.Transpose(x, 2, 0, 1)
	if !y.Shape().Equal(tensor.Shape{4, 2, 3}) {
		t.Fatalf("Expected shape [4 2 3], got %v", y.Shape())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				if y.At(k, i, j) != x.At(i, j, k) {
					t.Fatalf("y[%d,%d,%d] = %v, want %v", k, i, j, y.At(k, i, j), x.At(i, j, k))
				}
			}
		}
	}

	// Parallel split must give the same answer.
	par := NewWithConfig(Config{Seed: 1, Parallel: parallel.Config{Enabled: true, NumWorkers: 3, MinChunkSize: 2}})
	if !float32SliceEqual(par.Transpose(x, 2, 0, 1).Data(), y.Data()) {
		t.Error("parallel transpose differs from sequential")
	}
}

func TestCPUBackend_ConcatSplit(t *testing.T) {
	backend := newTestBackend()
	a := arange(2, 3)
	b := arange(2, 1)

	t.Run("LastAxis", func(t *testing.T) {
		c := backend.Concat([]*tensor.Array{a, b}, -1)
		want := []float32{1, 2, 3, 1, 4, 5, 6, 2}
		if !float32SliceEqual(c.Data(), want) {
			t.Fatalf("Expected %v, got %v", want, c.Data())
		}
		parts := backend.Split(c, []int{3, 1}, -1)
		if !float32SliceEqual(parts[0].Data(), a.Data()) || !float32SliceEqual(parts[1].Data(), b.Data()) {
			t.Errorf("Split did not invert Concat: %v, %v", parts[0].Data(), parts[1].Data())
		}
	})

	t.Run("LeadingAxisWithEmpty", func(t *testing.T) {
		empty := backend.Alloc(tensor.Shape{0, 3})
		c := backend.Concat([]*tensor.Array{empty, a, empty}, 0)
		if !c.Shape().Equal(tensor.Shape{2, 3}) {
			t.Fatalf("Expected shape [2 3], got %v", c.Shape())
		}
		parts := backend.Split(c, []int{0, 1, 1}, 0)
		if parts[0].Rows() != 0 || !float32SliceEqual(parts[2].Data(), []float32{4, 5, 6}) {
			t.Errorf("unexpected split %v", parts)
		}
	})
}

func TestCPUBackend_GatherScatter(t *testing.T) {
	backend := newTestBackend()
	x := arange(3, 2)

	g := backend.GatherRows(x, []int{2, -1, 0, 2})
	want := []float32{5, 6, 0, 0, 1, 2, 5, 6}
	if !float32SliceEqual(g.Data(), want) {
		t.Fatalf("Expected %v, got %v", want, g.Data())
	}

	dst := backend.Alloc(tensor.Shape{3, 2})
	backend.ScatterAddRows(dst, g, []int{2, -1, 0, 2})
	// Row 2 receives two copies, row 0 one, the negative row is skipped.
	want = []float32{1, 2, 0, 0, 10, 12}
	if !float32SliceEqual(dst.Data(), want) {
		t.Errorf("Expected %v, got %v", want, dst.Data())
	}
}

func TestCPUBackend_Arithmetic(t *testing.T) {
	backend := newTestBackend()
	x := arange(2, 2, 3)

	t.Run("AddBroadcast", func(t *testing.T) {
		b, _ := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3})
		y := backend.AddBroadcast(x, b)
		if y.At(1, 1, 2) != x.At(1, 1, 2)+30 || y.At(0, 0, 0) != 11 {
			t.Errorf("unexpected broadcast result %v", y.Data())
		}
	})

	t.Run("SumLeading", func(t *testing.T) {
		s := backend.SumLeading(x)
		want := []float32{8, 10, 12, 14, 16, 18}
		if !s.Shape().Equal(tensor.Shape{2, 3}) || !float32SliceEqual(s.Data(), want) {
			t.Errorf("Expected %v, got %v %v", want, s.Shape(), s.Data())
		}
	})

	t.Run("AddInPlace", func(t *testing.T) {
		dst := x.Clone()
		backend.AddInPlace(dst, x)
		if dst.At(1, 0, 1) != 2*x.At(1, 0, 1) {
			t.Errorf("Expected doubled values, got %v", dst.Data())
		}
	})

	t.Run("FillAndSumOfSquares", func(t *testing.T) {
		y := backend.Alloc(tensor.Shape{4})
		if backend.SumOfSquares(y) != 0 {
			t.Error("fresh array should have zero sum of squares")
		}
		backend.Fill(y, 2)
		if backend.SumOfSquares(y) != 16 {
			t.Errorf("Expected 16, got %v", backend.SumOfSquares(y))
		}
	})
}

func TestCPUBackend_XavierUniform(t *testing.T) {
	a := NewWithSeed(7).Alloc(tensor.Shape{6, 12})
	NewWithSeed(7).XavierUniform(a, 12, 6)
	b := NewWithSeed(7).Alloc(tensor.Shape{6, 12})
	NewWithSeed(7).XavierUniform(b, 12, 6)

	if !float32SliceEqual(a.Data(), b.Data()) {
		t.Error("same seed must give the same initialisation")
	}

	bound := float32(math.Sqrt(6.0 / 18.0))
	nonZero := 0
	for _, v := range a.Data() {
		if v < -bound || v > bound {
			t.Fatalf("value %v outside [-%v, %v]", v, bound, bound)
		}
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("initialisation produced only zeros")
	}
}
