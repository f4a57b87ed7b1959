package tensor

import "fmt"

// Keys is a row-major matrix of integer feature keys: one row per token,
// one column per feature class (lower-case form, prefix, suffix, ...).
//
// Keys never leave the host; embedding tables turn them into arrays.
type Keys struct {
	rows, cols int
	data       []uint64
}

// NewKeys wraps data as a (rows, cols) key matrix.
func NewKeys(data []uint64, rows, cols int) (*Keys, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid key matrix shape (%d, %d)", rows, cols)
	}
	if rows*cols != len(data) {
		return nil, fmt.Errorf("key matrix (%d, %d) requires %d keys, but got %d", rows, cols, rows*cols, len(data))
	}
	return &Keys{rows: rows, cols: cols, data: data}, nil
}

// Rows returns the number of tokens.
func (k *Keys) Rows() int { return k.rows }

// Cols returns the number of feature columns.
func (k *Keys) Cols() int { return k.cols }

// Data returns the backing slice.
func (k *Keys) Data() []uint64 { return k.data }

// At returns the key at (row, col).
func (k *Keys) At(row, col int) uint64 {
	return k.data[row*k.cols+col]
}

// Column returns a copy of one feature column.
// Panics if col is out of range.
func (k *Keys) Column(col int) []uint64 {
	if col < 0 || col >= k.cols {
		panic(fmt.Sprintf("Keys.Column: column %d out of range for %d columns", col, k.cols))
	}
	out := make([]uint64, k.rows)
	for i := range out {
		out[i] = k.data[i*k.cols+col]
	}
	return out
}

// SelectRows returns a new matrix made of the given rows, in order.
func (k *Keys) SelectRows(rows []int) *Keys {
	out := make([]uint64, 0, len(rows)*k.cols)
	for _, r := range rows {
		out = append(out, k.data[r*k.cols:(r+1)*k.cols]...)
	}
	return &Keys{rows: len(rows), cols: k.cols, data: out}
}

// Index is a row-major (rows, cols) matrix of row selectors.
//
// The contraction layers receive one row of selectors per output row: entry
// (n, f) names the input row whose f-th feature contributed to output n.
// Negative selectors select nothing and contribute a zero row.
type Index struct {
	rows, cols int
	data       []int
}

// NewIndex wraps data as a (rows, cols) selector matrix.
func NewIndex(data []int, rows, cols int) (*Index, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid index shape (%d, %d)", rows, cols)
	}
	if rows*cols != len(data) {
		return nil, fmt.Errorf("index (%d, %d) requires %d entries, but got %d", rows, cols, rows*cols, len(data))
	}
	return &Index{rows: rows, cols: cols, data: data}, nil
}

// Rows returns the number of selector rows.
func (ix *Index) Rows() int { return ix.rows }

// Cols returns the number of selectors per row.
func (ix *Index) Cols() int { return ix.cols }

// Data returns the backing slice.
func (ix *Index) Data() []int { return ix.data }
