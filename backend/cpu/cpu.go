// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go engine: host arrays, BLAS matrix products
// from gonum and goroutine fan-out for elementwise loops.
//
// Example:
//
//	import (
//	    "github.com/born-ml/layerkit/backend/cpu"
//	    "github.com/born-ml/layerkit/nn"
//	)
//
//	func main() {
//	    e := cpu.NewWithSeed(0)
//	    dense := nn.NewAffine(e, 10, 784)
//	}
package cpu

import (
	internalcpu "github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/tensor"
)

// Backend is the CPU engine.
type Backend = internalcpu.CPUBackend

// Config configures a CPU engine.
type Config = internalcpu.Config

// Compile-time check that Backend implements tensor.Engine.
var _ tensor.Engine = (*Backend)(nil)

// DefaultConfig returns a random seed and one worker per CPU.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}

// New creates a CPU engine with DefaultConfig.
func New() *Backend {
	return internalcpu.New()
}

// NewWithSeed creates a CPU engine whose initialisers are reproducible.
func NewWithSeed(seed int64) *Backend {
	return internalcpu.NewWithSeed(seed)
}

// NewWithConfig creates a CPU engine from an explicit config.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
