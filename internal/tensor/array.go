package tensor

import "fmt"

// Array is the dense float32 buffer every layer works on.
//
// Data is stored row-major. Views created with Wrap, RowSlice or Reshape
// share storage with their source, which is how a layer's parameter views
// alias the flat weight buffer handed to the optimizer.
type Array struct {
	data   []float32
	shape  Shape
	device Device
}

// NewArray allocates a zero-filled array.
func NewArray(shape Shape, device Device) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array{
		data:   make([]float32, shape.NumElements()),
		shape:  shape.Clone(),
		device: device,
	}, nil
}

// FromSlice creates a CPU array holding a copy of data.
func FromSlice(data []float32, shape Shape) (*Array, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	a, err := NewArray(shape, CPU)
	if err != nil {
		return nil, err
	}
	copy(a.data, data)
	return a, nil
}

// Wrap creates an array view over data without copying.
//
// Writes through the view are visible in data and vice versa.
func Wrap(data []float32, shape Shape, device Device) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Array{data: data, shape: shape.Clone(), device: device}, nil
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Device returns the device the array was allocated for.
func (a *Array) Device() Device {
	return a.device
}

// Data returns the backing slice.
//
// WARNING: Modifications to the returned slice will modify the array.
func (a *Array) Data() []float32 {
	return a.data
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return len(a.data)
}

// Rows returns the size of the leading axis.
func (a *Array) Rows() int {
	return a.shape.Rows()
}

// RowSize returns the number of elements in one row.
func (a *Array) RowSize() int {
	return a.shape.Inner().NumElements()
}

// RowSlice returns a view over rows [lo, hi).
// Panics if the range is out of bounds.
func (a *Array) RowSlice(lo, hi int) *Array {
	if lo < 0 || hi < lo || hi > a.Rows() {
		panic(fmt.Sprintf("RowSlice: range [%d, %d) out of bounds for %d rows", lo, hi, a.Rows()))
	}
	n := a.RowSize()
	return &Array{
		data:   a.data[lo*n : hi*n],
		shape:  a.shape.WithRows(hi - lo),
		device: a.device,
	}
}

// Reshape returns a view with a new shape and the same number of elements.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	if s.NumElements() != len(a.data) {
		return nil, Mismatch("reshape %v -> %v changes the number of elements", a.shape, s)
	}
	return &Array{data: a.data, shape: s.Clone(), device: a.device}, nil
}

// MustReshape is Reshape for shapes computed from the array itself.
// Panics on error.
func (a *Array) MustReshape(shape ...int) *Array {
	r, err := a.Reshape(shape...)
	if err != nil {
		panic(err)
	}
	return r
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	data := make([]float32, len(a.data))
	copy(data, a.data)
	return &Array{data: data, shape: a.shape.Clone(), device: a.device}
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (a *Array) At(indices ...int) float32 {
	return a.data[a.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (a *Array) Set(value float32, indices ...int) {
	a.data[a.offset(indices)] = value
}

func (a *Array) offset(indices []int) int {
	if len(indices) != len(a.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(a.shape), len(indices)))
	}
	offset := 0
	strides := a.shape.ComputeStrides()
	for i, idx := range indices {
		if idx < 0 || idx >= a.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, a.shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// String returns a human-readable description (not the data).
func (a *Array) String() string {
	return fmt.Sprintf("Array[float32]%v on %s", a.shape, a.device)
}
