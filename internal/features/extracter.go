package features

import (
	"github.com/born-ml/layerkit/internal/layer"
	"github.com/born-ml/layerkit/internal/tensor"
)

// DefaultAttrs is the column layout of the token encoder: the position of
// an attribute here is the key column embedding layers read.
var DefaultAttrs = []Attr{ID, NORM, PREFIX, SUFFIX, SHAPE, ORTH}

// Column returns the index of a in attrs, or -1.
func Column(attrs []Attr, a Attr) int {
	for i, x := range attrs {
		if x == a {
			return i
		}
	}
	return -1
}

// Extract returns the (len(doc), len(attrs)) key matrix of doc.
func Extract(doc *Doc, attrs []Attr) *tensor.Keys {
	data := make([]uint64, 0, doc.Len()*len(attrs))
	for _, tok := range doc.Tokens {
		for _, a := range attrs {
			data = append(data, a.Key(tok))
		}
	}
	keys, err := tensor.NewKeys(data, doc.Len(), len(attrs))
	if err != nil {
		panic(err)
	}
	return keys
}

// Extracter is the first layer of a text encoder: it maps every Doc of a
// batch to its key matrix. Keys carry no gradient, so backward returns nil.
func Extracter(attrs ...Attr) layer.Layer[[]*Doc, []*tensor.Keys] {
	if len(attrs) == 0 {
		attrs = DefaultAttrs
	}
	return layer.Layerize(func(docs []*Doc, _ bool) ([]*tensor.Keys, layer.Backprop[[]*tensor.Keys, []*Doc], error) {
		out := make([]*tensor.Keys, len(docs))
		for i, doc := range docs {
			out[i] = Extract(doc, attrs)
		}
		return out, layer.BackpropFunc[[]*tensor.Keys, []*Doc](func([]*tensor.Keys, layer.Optimizer) ([]*Doc, error) {
			return nil, nil
		}), nil
	})
}
