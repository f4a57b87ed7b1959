// Package cpu implements the CPU engine: pure Go array operations with BLAS
// matrix products from gonum.
package cpu

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/born-ml/layerkit/internal/parallel"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Config configures a CPU engine.
type Config struct {
	Seed     int64           // Seed of the initialisation RNG.
	Parallel parallel.Config // Goroutine fan-out for elementwise loops.
}

// DefaultConfig returns a config with a random seed and CPU-count workers.
func DefaultConfig() Config {
	return Config{
		Seed:     rand.Int63(), //nolint:gosec // ML initialisation, not security-critical
		Parallel: parallel.DefaultConfig(),
	}
}

// CPUBackend implements tensor.Engine on host memory.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

var _ tensor.Engine = (*CPUBackend)(nil)

// New creates a CPU engine with DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(DefaultConfig())
}

// NewWithSeed creates a CPU engine whose initialisers are reproducible.
func NewWithSeed(seed int64) *CPUBackend {
	cfg := DefaultConfig()
	cfg.Seed = seed
	return NewWithConfig(cfg)
}

// NewWithConfig creates a CPU engine from an explicit config.
func NewWithConfig(cfg Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg.Parallel,
		rng:    rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // ML initialisation, not security-critical
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Alloc returns a zero-filled array.
func (cpu *CPUBackend) Alloc(shape tensor.Shape) *tensor.Array {
	a, err := tensor.NewArray(shape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("alloc: %v", err))
	}
	return a
}
