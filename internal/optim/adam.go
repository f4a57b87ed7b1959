package optim

import (
	"math"
	"sync"

	"github.com/born-ml/layerkit/internal/layer"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Moments and the timestep t are kept per layer key, so a layer that is
// updated less often than others still gets a correct bias correction.
// Safe for concurrent use.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	mu    sync.Mutex
	lr    float32
	beta1 float32
	beta2 float32
	eps   float32
	reg   Regularization
	state map[layer.ID]*adamState
}

type adamState struct {
	t    int
	m, v []float32
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
	Regularization
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		reg:   config.Regularization,
		state: make(map[layer.ID]*adamState),
	}
}

// Update applies one Adam step to weights and clears gradient.
func (a *Adam) Update(weights, gradient []float32, key layer.ID) {
	checkLengths(weights, gradient)
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.state[key]
	if !ok || len(st.m) != len(weights) {
		st = &adamState{m: make([]float32, len(weights)), v: make([]float32, len(weights))}
		a.state[key] = st
	}
	st.t++
	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(st.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(st.t)))

	a.reg.apply(weights, gradient)
	for i, g := range gradient {
		st.m[i] = a.beta1*st.m[i] + (1.0-a.beta1)*g
		st.v[i] = a.beta2*st.v[i] + (1.0-a.beta2)*g*g
		mHat := st.m[i] / biasCorrection1
		vHat := st.v[i] / biasCorrection2
		weights[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
	clear(gradient)
}

// Steps returns how many updates key has received.
func (a *Adam) Steps(key layer.ID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.state[key]; ok {
		return st.t
	}
	return 0
}

// LR returns the learning rate.
func (a *Adam) LR() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lr
}

// SetLR changes the learning rate.
func (a *Adam) SetLR(lr float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lr = lr
}
