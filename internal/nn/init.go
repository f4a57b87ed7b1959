package nn

import (
	"github.com/born-ml/layerkit/internal/tensor"
)

// Xavier (Glorot) initialisation of w, treated as a rows x cols matrix.
//
// Values are drawn from U(-sqrt(6/(rows+cols)), sqrt(6/(rows+cols))).
// Higher-rank weights pass the fan sizes of the matrix they act as.
//
// Parameters:
//   - e: Engine providing the random source
//   - w: Weights to fill, in place
//   - rows, cols: Fan-out and fan-in
func Xavier(e tensor.Engine, w *tensor.Array, rows, cols int) {
	e.XavierUniform(w, cols, rows)
}

// XavierIfZero initialises w with Xavier only when every element is zero,
// and reports whether it did.
//
// A weight buffer that already holds values (loaded, copied, or partly
// trained) is never overwritten, so the call is idempotent.
func XavierIfZero(e tensor.Engine, w *tensor.Array, rows, cols int) bool {
	if e.SumOfSquares(w) != 0 {
		return false
	}
	Xavier(e, w, rows, cols)
	return true
}
