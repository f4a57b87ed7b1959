//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// MatMul computes op(a) @ op(b) with the matmul shader.
func (b *Backend) MatMul(a, other *tensor.Array, transA, transB bool) *tensor.Array {
	if len(a.Shape()) != 2 || len(other.Shape()) != 2 {
		panic(fmt.Sprintf("webgpu: matmul requires 2D arrays, got %v and %v", a.Shape(), other.Shape()))
	}
	m, k := a.Shape()[0], a.Shape()[1]
	if transA {
		m, k = k, m
	}
	k2, n := other.Shape()[0], other.Shape()[1]
	if transB {
		k2, n = n, k2
	}
	if k != k2 {
		panic(fmt.Sprintf("webgpu: matmul shape mismatch: %v @ %v (transA=%v, transB=%v)", a.Shape(), other.Shape(), transA, transB))
	}
	if m*n == 0 || k == 0 || !b.onGPU(m*n) {
		return b.CPUBackend.MatMul(a, other, transA, transB)
	}

	var flags uint32
	if transA {
		flags |= 1
	}
	if transB {
		flags |= 2
	}
	//nolint:gosec // G115: shape dimensions are non-negative
	params := uniform(uint32(m), uint32(k), uint32(n), flags)
	out := b.Alloc(tensor.Shape{m, n})
	groupsX := uint32(math.Ceil(float64(n) / matmulTile))
	groupsY := uint32(math.Ceil(float64(m) / matmulTile))
	b.dispatch("matmul", matmulShader, a.Data(), other.Data(), out.Data(), params, groupsX, groupsY)
	return out
}

// Add returns a + b with the add shader.
func (b *Backend) Add(a, other *tensor.Array) *tensor.Array {
	if !a.Shape().Equal(other.Shape()) {
		panic(fmt.Sprintf("webgpu: add shape mismatch: %v vs %v", a.Shape(), other.Shape()))
	}
	n := a.NumElements()
	if n == 0 || !b.onGPU(n) {
		return b.CPUBackend.Add(a, other)
	}
	out := b.Alloc(a.Shape())
	//nolint:gosec // G115: element count is non-negative
	b.dispatch("add", addShader, a.Data(), other.Data(), out.Data(), uniform(uint32(n)), groups(n), 1)
	return out
}

// AddBroadcast returns x + bias, where bias's shape is a suffix of x's.
func (b *Backend) AddBroadcast(x, bias *tensor.Array) *tensor.Array {
	n, inner := x.NumElements(), bias.NumElements()
	xs, bs := x.Shape(), bias.Shape()
	if len(bs) > len(xs) || !tensor.Shape(xs[len(xs)-len(bs):]).Equal(bs) {
		panic(fmt.Sprintf("webgpu: cannot broadcast %v onto %v", bs, xs))
	}
	if n == 0 || inner == 0 || !b.onGPU(n) {
		return b.CPUBackend.AddBroadcast(x, bias)
	}
	out := b.Alloc(xs)
	//nolint:gosec // G115: element counts are non-negative
	b.dispatch("add_broadcast", addBroadcastShader, x.Data(), bias.Data(), out.Data(), uniform(uint32(n), uint32(inner)), groups(n), 1)
	return out
}

// dispatch runs a two-input, one-output shader and copies the result into out.
func (b *Backend) dispatch(name, code string, lhs, rhs, out []float32, params []byte, groupsX, groupsY uint32) {
	pipeline := b.getOrCreatePipeline(name, b.compileShader(name, code))

	bufferA := b.createBuffer(floatBytes(lhs), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferA.Release()
	bufferB := b.createBuffer(floatBytes(rhs), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferB.Release()

	resultSize := uint64(len(out) * 4)
	bufferResult := b.bufferPool.Acquire(resultSize, storageUsage)
	defer b.bufferPool.Release(bufferResult, resultSize, storageUsage)

	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, uint64(len(lhs)*4)),
		wgpu.BufferBindingEntry(1, bufferB, 0, uint64(len(rhs)*4)),
		wgpu.BufferBindingEntry(2, bufferResult, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufferParams, 0, uint64(len(params))),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(groupsX, groupsY, 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", name, err))
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()
	return pipeline
}

// createBuffer creates a GPU buffer holding data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // unsafe.Slice for zero-copy access to the mapped range
	copy(unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size), data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer creates a uniform buffer. Uniform buffers require
// 16-byte alignment.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	aligned := make([]byte, (len(data)+15)&^15)
	copy(aligned, data)
	return b.createBuffer(aligned, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// readBuffer reads a storage buffer back through a staging buffer, since
// storage buffers can't be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}
	result := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy access to the mapped range
	copy(result, unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size))
	staging.Unmap()
	return result, nil
}

// uniform packs u32 parameters little-endian, padded to 16 bytes.
func uniform(values ...uint32) []byte {
	buf := make([]byte, (len(values)*4+15)&^15)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func floatBytes(data []float32) []byte {
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func groups(n int) uint32 {
	//nolint:gosec // G115: workgroup count is non-negative
	return uint32((n + workgroupSize - 1) / workgroupSize)
}
