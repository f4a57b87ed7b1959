package nn

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/spaolacci/murmur3"
)

// hashesPerKey is the number of table rows summed for every key.
const hashesPerKey = 4

// embedInitBound is the half-width of the uniform table initialisation.
const embedInitBound = 0.1

// HashEmbed maps one column of a key matrix to dense vectors without a
// vocabulary. Every key is hashed with murmur3 (128 bit, per-layer seed)
// into four 32-bit values; each selects a row of an (nV, nO) table and the
// four rows are summed. Collisions on one hash rarely repeat on the others.
//
// Shapes:
//   - x: Keys [n, cols], only column Column is read
//   - E: [nV, nO]
//   - y: [n, nO]
//
// Keys carry no gradient: backward updates the table and returns nil.
type HashEmbed struct {
	engine tensor.Engine
	nO, nV int
	seed   uint32
	column int
	params *Params
}

// NewHashEmbed creates an embedding of width nO with nV rows, reading the
// given key column. Layers sharing a column should use different seeds.
func NewHashEmbed(e tensor.Engine, nO, nV, column int, seed uint32) *HashEmbed {
	if nO <= 0 || nV <= 0 {
		panic(fmt.Sprintf("nn.NewHashEmbed: invalid table shape (%d, %d)", nV, nO))
	}
	return &HashEmbed{engine: e, nO: nO, nV: nV, seed: seed, column: column, params: NewParams(e)}
}

// Params returns the layer's parameter memory.
func (h *HashEmbed) Params() *Params { return h.params }

// Dims reports (0, nO): the input is a key matrix, not an array.
func (h *HashEmbed) Dims() (nI, nO int) { return 0, h.nO }

// Column returns the key column the layer reads.
func (h *HashEmbed) Column() int { return h.column }

// Table returns the embedding table. Nil before allocation.
func (h *HashEmbed) Table() *tensor.Array { return paramValue(h.params, "E") }

// Initialize allocates the table without data.
func (h *HashEmbed) Initialize() error {
	h.materialize()
	return nil
}

func (h *HashEmbed) materialize() {
	if h.params.Allocated() {
		return
	}
	h.params.Declare("E", tensor.Shape{h.nV, h.nO})
	h.params.Allocate()
	h.engine.Uniform(h.Table(), embedInitBound)
}

// Rows returns the four table rows selected for key.
func (h *HashEmbed) Rows(key uint64) [hashesPerKey]int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h1, h2 := murmur3.Sum128WithSeed(buf[:], h.seed)
	nV := uint64(h.nV)
	return [hashesPerKey]int{
		int(uint64(uint32(h1)) % nV),
		int(uint64(uint32(h1>>32)) % nV),
		int(uint64(uint32(h2)) % nV),
		int(uint64(uint32(h2>>32)) % nV),
	}
}

// Forward sums the four hashed rows of every key.
func (h *HashEmbed) Forward(x *tensor.Keys, _ bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Keys], error) {
	if h.column < 0 || h.column >= x.Cols() {
		return nil, nil, tensor.Mismatch("HashEmbed: column %d out of range for %d key columns", h.column, x.Cols())
	}
	h.materialize()

	n := x.Rows()
	rows := make([]int, n*hashesPerKey)
	for i, key := range x.Column(h.column) {
		r := h.Rows(key)
		copy(rows[i*hashesPerKey:], r[:])
	}
	gathered := h.engine.GatherRows(h.Table(), rows).MustReshape(n, hashesPerKey, h.nO)
	y := h.engine.SumLeading(h.engine.Transpose(gathered, 1, 0, 2))

	return y, layer.BackpropFunc[*tensor.Array, *tensor.Keys](func(dY *tensor.Array, opt layer.Optimizer) (*tensor.Keys, error) {
		if !dY.Shape().Equal(y.Shape()) {
			return nil, tensor.Mismatch("HashEmbed backward: gradient %v for output %v", dY.Shape(), y.Shape())
		}
		dE := h.params.Get("E").Grad()
		column := make([]int, n)
		for k := 0; k < hashesPerKey; k++ {
			for i := range column {
				column[i] = rows[i*hashesPerKey+k]
			}
			h.engine.ScatterAddRows(dE, dY, column)
		}
		h.params.Update(opt)
		return nil, nil
	}), nil
}
