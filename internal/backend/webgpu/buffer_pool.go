//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// sizeClass buckets pooled buffers so lookups only scan comparable sizes.
type sizeClass int

const (
	smallClass  sizeClass = iota // < 4KB
	mediumClass                  // 4KB - 1MB
	largeClass                   // > 1MB
	numClasses
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPoolSize     = 100 // per class
)

func classOf(size uint64) sizeClass {
	switch {
	case size < smallThreshold:
		return smallClass
	case size < mediumThreshold:
		return mediumClass
	default:
		return largeClass
	}
}

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// PoolStats counts buffer pool traffic.
type PoolStats struct {
	Allocated uint64 // buffers created
	Released  uint64 // buffers handed back
	Hits      uint64 // acquisitions served from the pool
	Misses    uint64 // acquisitions that created a buffer
	Pooled    int    // buffers currently idle in the pool
}

// BufferPool reuses result buffers across dispatches. A pooled buffer is
// handed out for any request it can hold with compatible usage flags.
type BufferPool struct {
	device  *wgpu.Device
	classes [numClasses][]pooledBuffer
	stats   PoolStats
	mu      sync.Mutex
}

// NewBufferPool creates an empty pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire returns a buffer of at least size bytes with usage, reusing an
// idle one when possible.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := classOf(size)
	for i, pb := range p.classes[c] {
		if pb.size >= size && pb.usage&usage == usage {
			p.classes[c] = append(p.classes[c][:i], p.classes[c][i+1:]...)
			p.stats.Hits++
			return pb.buffer
		}
	}

	p.stats.Misses++
	p.stats.Allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{Usage: usage, Size: size})
}

// Release hands a buffer back. When its class is full the buffer is
// destroyed instead.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++
	c := classOf(size)
	if len(p.classes[c]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.classes[c] = append(p.classes[c], pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases every idle buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.classes {
		for _, pb := range p.classes[c] {
			pb.buffer.Release()
		}
		p.classes[c] = nil
	}
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	for c := range p.classes {
		s.Pooled += len(p.classes[c])
	}
	return s
}
