package optim

import (
	"sync"

	"github.com/born-ml/layerkit/internal/layer"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Velocities are kept per layer key. Safe for concurrent use.
//
// Example:
//
//	opt := optim.NewSGD(optim.SGDConfig{LR: 0.01, Momentum: 0.9})
type SGD struct {
	mu         sync.Mutex
	lr         float32
	momentum   float32
	reg        Regularization
	velocities map[layer.ID][]float32
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.0, range: [0, 1))
	Regularization
}

// NewSGD creates a new SGD optimizer, filling in defaults.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		lr:         config.LR,
		momentum:   config.Momentum,
		reg:        config.Regularization,
		velocities: make(map[layer.ID][]float32),
	}
}

// Update applies one step to weights and clears gradient.
func (s *SGD) Update(weights, gradient []float32, key layer.ID) {
	checkLengths(weights, gradient)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reg.apply(weights, gradient)
	if s.momentum == 0 {
		for i, g := range gradient {
			weights[i] -= s.lr * g
		}
	} else {
		v, ok := s.velocities[key]
		if !ok || len(v) != len(weights) {
			v = make([]float32, len(weights))
			s.velocities[key] = v
		}
		for i, g := range gradient {
			v[i] = s.momentum*v[i] + g
			weights[i] -= s.lr * v[i]
		}
	}
	clear(gradient)
}

// LR returns the learning rate.
func (s *SGD) LR() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lr
}

// SetLR changes the learning rate.
func (s *SGD) SetLR(lr float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lr = lr
}
