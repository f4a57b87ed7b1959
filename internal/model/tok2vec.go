// Package model assembles the layer and nn building blocks into complete
// text models: the Tok2Vec token encoder and the heads trained on top of it.
package model

import (
	"fmt"

	"github.com/born-ml/layerkit/internal/features"
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Encoder maps a batch of Docs to one (len(doc), Width) vector array per Doc.
type Encoder struct {
	layer.Layer[[]*features.Doc, []*tensor.Array]

	width     int
	attrs     []features.Attr
	embeds    []*nn.HashEmbed
	trainable []nn.Trainable
}

// Width returns the token vector width.
func (enc *Encoder) Width() int { return enc.width }

// Attrs returns the key columns the encoder extracts.
func (enc *Encoder) Attrs() []features.Attr { return enc.attrs }

// Embeddings returns the hash embedding tables in column order.
func (enc *Encoder) Embeddings() []*nn.HashEmbed { return enc.embeds }

// NumParams returns the number of allocated weights. Layers allocate on
// their first forward call, so this is 0 before the encoder has seen data.
func (enc *Encoder) NumParams() int {
	return nn.CountParams(enc.trainable...)
}

// Tok2Vec builds the token encoder:
//
//	Extracter(ID, NORM, PREFIX, SUFFIX, SHAPE, ORTH)
//	  >> with_flatten_keys(
//	       uniqued(
//	         (HashEmbed(NORM) | HashEmbed(PREFIX) | HashEmbed(SUFFIX) | HashEmbed(SHAPE))
//	         >> LN(Maxout(width, 4*width, pieces)), column=ORTH)
//	       >> Residual(ExtractWindow(window) >> LN(Maxout(width, 3*width, cnnPieces))) ** depth,
//	       pad, PadSequences)
//
// The NORM table has EmbedSize rows and the other three half as many.
// Documents are separated by Pad zero rows while flattened, so convolution
// windows never reach into a neighbouring document.
func Tok2Vec(e tensor.Engine, cfg Tok2VecConfig) (*Encoder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	width := cfg.Width
	attrs := features.DefaultAttrs
	enc := &Encoder{width: width, attrs: attrs}

	embedRows := map[features.Attr]int{
		features.NORM:   cfg.EmbedSize,
		features.PREFIX: cfg.EmbedSize / 2,
		features.SUFFIX: cfg.EmbedSize / 2,
		features.SHAPE:  cfg.EmbedSize / 2,
	}
	branches := make([]layer.Layer[*tensor.Keys, *tensor.Array], 0, len(embedRows))
	for i, a := range []features.Attr{features.NORM, features.PREFIX, features.SUFFIX, features.SHAPE} {
		rows := max(embedRows[a], 1)
		h := nn.NewHashEmbed(e, width, rows, features.Column(attrs, a), cfg.Seed+uint32(i)) //nolint:gosec // G115: i < 4.
		enc.embeds = append(enc.embeds, h)
		enc.trainable = append(enc.trainable, h)
		branches = append(branches, h)
	}

	mix := nn.NewMaxout(e, width, width*len(branches), cfg.EmbedPieces)
	mixNorm := nn.NewLayerNorm(e, width)
	enc.trainable = append(enc.trainable, mix, mixNorm)
	embedMix, err := layer.Chain(
		layer.Layer[*tensor.Keys, *tensor.Array](layer.Concatenate(e, branches...)),
		layer.Layer[*tensor.Array, *tensor.Array](layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](mix, mixNorm)),
	)
	if err != nil {
		return nil, fmt.Errorf("tok2vec embed: %w", err)
	}
	embed := layer.Uniqued(e, embedMix, features.Column(attrs, features.ORTH))

	convolutions, err := layer.CloneChain(cfg.Depth, func(int) layer.Layer[*tensor.Array, *tensor.Array] {
		maxout := nn.NewMaxout(e, width, width*(2*cfg.Window+1), cfg.CNNPieces)
		norm := nn.NewLayerNorm(e, width)
		enc.trainable = append(enc.trainable, maxout, norm)
		conv := layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](
			nn.NewExtractWindow(e, cfg.Window),
			layer.MustChain[*tensor.Array, *tensor.Array, *tensor.Array](maxout, norm),
		)
		return layer.Residual(e, conv)
	})
	if err != nil {
		return nil, fmt.Errorf("tok2vec convolutions: %w", err)
	}

	body, err := layer.Chain(layer.Layer[*tensor.Keys, *tensor.Array](embed), convolutions)
	if err != nil {
		return nil, fmt.Errorf("tok2vec: %w", err)
	}
	flat := layer.WithFlattenKeys(e, body, cfg.Pad, tensor.PadSequences)
	enc.Layer = layer.MustChain(features.Extracter(attrs...), flat)
	return enc, nil
}
