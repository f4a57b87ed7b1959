package main

import (
	"testing"

	"github.com/born-ml/layerkit/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeClasses(t *testing.T) {
	doc, err := features.NewWhitespace().Tokenize("Alice paid 42 , ok")
	require.NoError(t, err)
	assert.Equal(t, []int{classCapitalised, classOther, classNumber, classOther, classOther}, shapeClasses(doc))
}

func TestNewOptimizer(t *testing.T) {
	for _, name := range []string{"sgd", "adam"} {
		opt, err := newOptimizer(name, 0.1, 0.9)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, opt.LR(), 1e-7)
	}
	_, err := newOptimizer("rmsprop", 0.1, 0)
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	assert.InDelta(t, 0.75, accuracy([][]int{{0, 1}, {2, 2}}, [][]int{{0, 1}, {2, 0}}), 1e-9)
	assert.Zero(t, accuracy(nil, nil))
}
