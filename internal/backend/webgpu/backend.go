//go:build windows

// Package webgpu implements a tensor.Engine that runs matrix products and
// elementwise additions as WGSL compute shaders.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Arrays stay in host memory: every dispatch uploads its operands, runs one
// compute pass and reads the result back. Operations without a shader
// (concatenation, row gathers, initialisation) run on an embedded CPU
// engine, so the backend is a drop-in replacement wherever an Engine is
// accepted.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Config configures a WebGPU engine.
type Config struct {
	// CPU configures the fallback engine for operations without a shader.
	CPU cpu.Config

	// MinElements is the smallest output size dispatched to the GPU.
	// Smaller results are computed on the CPU, where the upload and
	// readback would dominate. 0 dispatches everything.
	MinElements int
}

// DefaultConfig returns the default CPU fallback config and a 4096 element
// dispatch threshold.
func DefaultConfig() Config {
	return Config{CPU: cpu.DefaultConfig(), MinElements: 4096}
}

// Backend implements tensor.Engine on a WebGPU device.
type Backend struct {
	*cpu.CPUBackend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	minElements int

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo
	bufferPool  *BufferPool

	dispatches struct {
		sync.Mutex
		gpu, cpu uint64
	}
}

var _ tensor.Engine = (*Backend)(nil)

// New creates a WebGPU engine with DefaultConfig.
func New() (*Backend, error) {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a WebGPU engine.
// Returns an error if WebGPU is not available or initialization fails.
func NewWithConfig(cfg Config) (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", err)
	}

	// Adapter info is informational only; nil is tolerated.
	info, _ := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		CPUBackend:  cpu.NewWithConfig(cfg.CPU),
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		minElements: cfg.MinElements,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: info,
		bufferPool:  NewBufferPool(device),
	}, nil
}

// Release releases all WebGPU resources.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bufferPool != nil {
		b.bufferPool.Clear()
		b.bufferPool = nil
	}
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil && b.adapterInfo.Device != "" {
		return fmt.Sprintf("WebGPU (%s)", b.adapterInfo.Device)
	}
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// AdapterInfo returns information about the GPU adapter.
// Returns nil if the adapter could not report it.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfoGo {
	return b.adapterInfo
}

// Alloc returns a zero-filled host array tagged with the WebGPU device.
func (b *Backend) Alloc(shape tensor.Shape) *tensor.Array {
	a, err := tensor.NewArray(shape, tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: alloc: %v", err))
	}
	return a
}

// Dispatches reports how many operations ran as shaders and how many fell
// back to the CPU because they were below the size threshold.
func (b *Backend) Dispatches() (gpu, cpu uint64) {
	b.dispatches.Lock()
	defer b.dispatches.Unlock()
	return b.dispatches.gpu, b.dispatches.cpu
}

// BufferStats reports the buffer pool counters.
func (b *Backend) BufferStats() PoolStats {
	return b.bufferPool.Stats()
}

// onGPU decides whether an operation producing n elements is dispatched.
func (b *Backend) onGPU(n int) bool {
	gpu := n >= b.minElements
	b.dispatches.Lock()
	if gpu {
		b.dispatches.gpu++
	} else {
		b.dispatches.cpu++
	}
	b.dispatches.Unlock()
	return gpu
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
