package cpu

import (
	"math"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Uniform fills x with values drawn from U(-bound, bound).
func (cpu *CPUBackend) Uniform(x *tensor.Array, bound float64) {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	data := x.Data()
	for i := range data {
		data[i] = float32((cpu.rng.Float64()*2.0 - 1.0) * bound)
	}
}

// XavierUniform fills x with Glorot-uniform values:
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func (cpu *CPUBackend) XavierUniform(x *tensor.Array, fanIn, fanOut int) {
	if fanIn+fanOut <= 0 {
		return
	}
	cpu.Uniform(x, math.Sqrt(6.0/float64(fanIn+fanOut)))
}
