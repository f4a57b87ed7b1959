// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers layers hand their gradients to
// during backward.
//
// Optimizers keep per-layer state keyed on the layer's ID, so a single
// optimizer serves a whole model:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//	probs, bp, err := model.Forward(x, true)
//	dProbs, loss, err := nn.CategoricalCrossEntropy(e, probs, truths)
//	_, err = bp.Backward(dProbs, opt)
package optim

import (
	"github.com/born-ml/layerkit/internal/optim"
)

// Optimizer is a layer.Optimizer with an adjustable learning rate.
type Optimizer = optim.Optimizer

// Regularization configures L2 decay and gradient clipping.
type Regularization = optim.Regularization

// SGD (Stochastic Gradient Descent)

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
//
// Example:
//
//	opt := optim.NewSGD(optim.SGDConfig{LR: 0.01, Momentum: 0.9})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam is the Adam optimizer with bias correction.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer. Zero fields take their defaults.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float32{0.9, 0.999},
//	    Eps:   1e-8,
//	})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}
