package model

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/tensor"
)

// SlotScorer classifies states described by nF selected token rows.
//
// Token vectors are projected through every feature slot once
// (PrecomputableMaxouts.Begin). A state is then scored by summing the
// precomputed slot outputs of its selected rows, taking the max over pieces
// and applying a Softmax. Scoring many states against one batch reuses the
// projection.
type SlotScorer struct {
	engine tensor.Engine
	lower  *nn.PrecomputableMaxouts
	upper  *nn.Softmax
}

// NewSlotScorer creates a scorer with nClasses outputs, a hidden layer of
// width hidden with nP pieces, and nF slots per state. nI may be 0.
func NewSlotScorer(e tensor.Engine, nClasses, hidden, nI, nF, nP int) *SlotScorer {
	return &SlotScorer{
		engine: e,
		lower:  nn.NewPrecomputableMaxouts(e, hidden, nI, nF, nP),
		upper:  nn.NewSoftmax(e, nClasses, hidden).ZeroInit(),
	}
}

// Lower returns the precomputable hidden layer.
func (s *SlotScorer) Lower() *nn.PrecomputableMaxouts { return s.lower }

// Upper returns the output layer.
func (s *SlotScorer) Upper() *nn.Softmax { return s.upper }

// Begin precomputes the hidden projection of tokens (n, nI).
func (s *SlotScorer) Begin(tokens *tensor.Array) (*Precomputed, error) {
	y, bp, err := s.lower.Begin(tokens)
	if err != nil {
		return nil, fmt.Errorf("slot scorer: %w", err)
	}
	return &Precomputed{s: s, y: y, bp: bp}, nil
}

// Precomputed is the hidden projection of one token batch.
type Precomputed struct {
	s  *SlotScorer
	y  *tensor.Array
	bp *nn.PrecomputedBackprop
}

// Score returns class probabilities (n, nClasses) for the n states in ids
// (n, nF). A negative selector leaves its slot empty.
//
// The returned Backprop takes the gradient with respect to the logits and
// returns the gradient with respect to the tokens passed to Begin.
func (p *Precomputed) Score(ids *tensor.Index, train bool) (*tensor.Array, layer.Backprop[*tensor.Array, *tensor.Array], error) {
	s := p.s
	nF, nO, nP := s.lower.NF(), s.lower.NO(), s.lower.NP()
	if ids.Cols() != nF {
		return nil, nil, tensor.Mismatch("slot scorer: %d selectors per state, expected %d", ids.Cols(), nF)
	}
	n, width := ids.Rows(), nO*nP
	bias := s.lower.B().Data()
	yd := p.y.Data()

	// h = b + Σ_f (Y[ids[n,f], f] - b)
	h := s.engine.Alloc(tensor.Shape{n, nO, nP})
	hd := h.Data()
	for r := 0; r < n; r++ {
		row := hd[r*width : (r+1)*width]
		copy(row, bias)
		for f := 0; f < nF; f++ {
			tok := ids.Data()[r*nF+f]
			if tok < 0 {
				continue
			}
			if tok >= p.y.Rows() {
				return nil, nil, tensor.Mismatch("slot scorer: selector %d for %d tokens", tok, p.y.Rows())
			}
			slot := yd[(tok*nF+f)*width : (tok*nF+f+1)*width]
			for j := range row {
				row[j] += slot[j] - bias[j]
			}
		}
	}

	hidden := s.engine.Alloc(tensor.Shape{n, nO})
	which := make([]int, n*nO)
	hid := hidden.Data()
	for i := range hid {
		pieces := hd[i*nP : (i+1)*nP]
		best := 0
		for q := 1; q < nP; q++ {
			if pieces[q] > pieces[best] {
				best = q
			}
		}
		which[i] = best
		hid[i] = pieces[best]
	}

	probs, upperBp, err := s.upper.Forward(hidden, train)
	if err != nil {
		return nil, nil, err
	}

	return probs, layer.BackpropFunc[*tensor.Array, *tensor.Array](func(dProbs *tensor.Array, opt layer.Optimizer) (*tensor.Array, error) {
		dHidden, err := upperBp.Backward(dProbs, opt)
		if err != nil {
			return nil, err
		}
		dH := s.engine.Alloc(tensor.Shape{n, nO, nP})
		dhd := dH.Data()
		for i, g := range dHidden.Data() {
			dhd[i*nP+which[i]] = g
		}
		dXf, err := p.bp.Backward(dH, ids, opt)
		if err != nil {
			return nil, err
		}
		return p.bp.InputGradient(dXf, ids)
	}), nil
}

// WindowIndex selects, for every token of a flattened batch, the nF tokens
// centred on it (nF odd) within the same sequence. Slots past a sequence
// boundary are -1.
func WindowIndex(lengths tensor.Lengths, nF int) (*tensor.Index, error) {
	if nF < 1 || nF%2 == 0 {
		return nil, fmt.Errorf("window index: nF must be odd and positive, got %d", nF)
	}
	if lengths.Pad != 0 {
		return nil, fmt.Errorf("window index: expected an unpadded batch, got pad %d", lengths.Pad)
	}
	half := nF / 2
	data := make([]int, 0, lengths.Total()*nF)
	start := 0
	for _, size := range lengths.Sizes {
		for i := 0; i < size; i++ {
			for off := -half; off <= half; off++ {
				j := i + off
				if j < 0 || j >= size {
					data = append(data, -1)
				} else {
					data = append(data, start+j)
				}
			}
		}
		start += size
	}
	return tensor.NewIndex(data, lengths.Total(), nF)
}
