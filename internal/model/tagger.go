package model

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/features"
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/tensor"
)

// DefaultBatchRows is the row count the tagger's output layer is rebatched
// to.
const DefaultBatchRows = 1024

// Tagger predicts one class per token:
//
//	tok2vec >> with_flatten(rebatch(Softmax(nClasses, width)))
//
// The Softmax starts from zero weights, so an untrained tagger predicts the
// uniform distribution.
type Tagger struct {
	layer.Layer[[]*features.Doc, []*tensor.Array]

	engine  tensor.Engine
	encoder *Encoder
	output  *nn.Softmax
}

// NewTagger puts a token classifier with nClasses classes on top of enc.
// batchRows <= 0 selects DefaultBatchRows.
func NewTagger(e tensor.Engine, enc *Encoder, nClasses, batchRows int) (*Tagger, error) {
	if nClasses < 1 {
		return nil, fmt.Errorf("tagger: need at least one class, got %d", nClasses)
	}
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	output := nn.NewSoftmax(e, nClasses, enc.Width()).ZeroInit()
	head := layer.WithFlatten(e, layer.Rebatch(e, batchRows, output), 0, tensor.PadEdges)
	return &Tagger{
		Layer:   layer.MustChain(enc.Layer, head),
		engine:  e,
		encoder: enc,
		output:  output,
	}, nil
}

// Encoder returns the token encoder.
func (t *Tagger) Encoder() *Encoder { return t.encoder }

// Output returns the Softmax layer.
func (t *Tagger) Output() *nn.Softmax { return t.output }

// Predict returns the most probable class of every token.
func (t *Tagger) Predict(docs []*features.Doc) ([][]int, error) {
	probs, _, err := t.Forward(docs, false)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(probs))
	for i, p := range probs {
		nC := p.RowSize()
		out[i] = make([]int, p.Rows())
		for r := range out[i] {
			best := 0
			for c := 1; c < nC; c++ {
				if p.At(r, c) > p.At(r, best) {
					best = c
				}
			}
			out[i][r] = best
		}
	}
	return out, nil
}

// Update runs one training step on a batch: forward, categorical
// cross-entropy against truths (one class per token, negative to skip),
// backward through every layer with opt. Returns the mean loss.
func (t *Tagger) Update(docs []*features.Doc, truths [][]int, opt layer.Optimizer) (float64, error) {
	if len(truths) != len(docs) {
		return 0, tensor.Mismatch("tagger: %d truth sequences for %d docs", len(truths), len(docs))
	}
	probs, bp, err := t.Forward(docs, true)
	if err != nil {
		return 0, err
	}
	flat, lengths, err := tensor.Flatten(t.engine, probs, 0)
	if err != nil {
		return 0, err
	}
	gold := make([]int, 0, lengths.Total())
	for i, tr := range truths {
		if len(tr) != docs[i].Len() {
			return 0, tensor.Mismatch("tagger: doc %d has %d tokens but %d truths", i, docs[i].Len(), len(tr))
		}
		gold = append(gold, tr...)
	}
	d, loss, err := nn.CategoricalCrossEntropy(t.engine, flat, gold)
	if err != nil {
		return 0, err
	}
	dProbs, err := tensor.Unflatten(t.engine, d, lengths)
	if err != nil {
		return 0, err
	}
	if _, err := bp.Backward(dProbs, opt); err != nil {
		return 0, err
	}
	return loss, nil
}
