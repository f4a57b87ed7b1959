//go:build windows

package webgpu

import (
	"testing"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/require"
)

// newTestBackend dispatches every operation to the GPU, skipping when no
// adapter is present.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
	cfg := DefaultConfig()
	cfg.CPU.Seed = 3
	cfg.MinElements = 0
	b, err := NewWithConfig(cfg)
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func filled(e tensor.Engine, shape ...int) *tensor.Array {
	a := e.Alloc(shape)
	e.Uniform(a, 1)
	return a
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestNew(t *testing.T) {
	b := newTestBackend(t)
	require.NotEmpty(t, b.Name())
	require.Equal(t, tensor.WebGPU, b.Device())
	require.Equal(t, tensor.WebGPU, b.Alloc(tensor.Shape{2}).Device())
}

func TestName_AdapterInfo(t *testing.T) {
	require.Equal(t, "WebGPU", (&Backend{}).Name())
	named := &Backend{adapterInfo: &wgpu.AdapterInfoGo{Device: "Test GPU"}}
	require.Equal(t, "WebGPU (Test GPU)", named.Name())

	b := newTestBackend(t)
	if info := b.AdapterInfo(); info != nil && info.Device != "" {
		require.Contains(t, b.Name(), info.Device)
	}
}

func TestMatMul_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.NewWithSeed(1)

	for _, tc := range []struct {
		name           string
		a, c           tensor.Shape
		transA, transB bool
	}{
		{"plain", tensor.Shape{5, 7}, tensor.Shape{7, 3}, false, false},
		{"transA", tensor.Shape{7, 5}, tensor.Shape{7, 3}, true, false},
		{"transB", tensor.Shape{5, 7}, tensor.Shape{3, 7}, false, true},
		{"both", tensor.Shape{7, 5}, tensor.Shape{3, 7}, true, true},
		{"tiles", tensor.Shape{33, 20}, tensor.Shape{20, 17}, false, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			x := filled(ref, tc.a...)
			y := filled(ref, tc.c...)
			want := ref.MatMul(x, y, tc.transA, tc.transB)
			got := b.MatMul(x, y, tc.transA, tc.transB)
			require.Equal(t, want.Shape(), got.Shape())
			require.InDeltaSlice(t, want.Data(), got.Data(), 1e-4)
		})
	}
}

func TestAdd_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.NewWithSeed(1)

	x, y := filled(ref, 300, 5), filled(ref, 300, 5)
	require.InDeltaSlice(t, ref.Add(x, y).Data(), b.Add(x, y).Data(), 1e-6)

	bias := filled(ref, 5)
	require.InDeltaSlice(t, ref.AddBroadcast(x, bias).Data(), b.AddBroadcast(x, bias).Data(), 1e-6)
}

func TestThresholdFallsBackToCPU(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
	b, err := NewWithConfig(Config{CPU: cpu.DefaultConfig(), MinElements: 1 << 20})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	defer b.Release()

	x := filled(b, 4, 4)
	b.MatMul(x, x, false, false)
	b.Add(x, x)

	gpu, host := b.Dispatches()
	require.Zero(t, gpu)
	require.Equal(t, uint64(2), host)
}

func TestBufferPool_Reuse(t *testing.T) {
	b := newTestBackend(t)
	pool := b.bufferPool

	buf := pool.Acquire(1024, storageUsage)
	require.Equal(t, PoolStats{Allocated: 1, Misses: 1}, pool.Stats())

	pool.Release(buf, 1024, storageUsage)
	require.Equal(t, 1, pool.Stats().Pooled)

	// A smaller request in the same class reuses the idle buffer.
	again := pool.Acquire(512, storageUsage)
	stats := pool.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, 0, stats.Pooled)

	// Incompatible usage never matches.
	pool.Release(again, 1024, storageUsage)
	other := pool.Acquire(1024, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.Equal(t, uint64(2), pool.Stats().Misses)
	other.Release()

	pool.Clear()
	require.Zero(t, pool.Stats().Pooled)
}

func TestBufferPool_ClassFull(t *testing.T) {
	b := newTestBackend(t)
	pool := b.bufferPool

	bufs := make([]*wgpu.Buffer, maxPoolSize+5)
	for i := range bufs {
		bufs[i] = pool.Acquire(64, storageUsage)
	}
	for _, buf := range bufs {
		pool.Release(buf, 64, storageUsage)
	}
	require.Equal(t, maxPoolSize, pool.Stats().Pooled)
}

func TestClassOf(t *testing.T) {
	require.Equal(t, smallClass, classOf(0))
	require.Equal(t, smallClass, classOf(smallThreshold-1))
	require.Equal(t, mediumClass, classOf(smallThreshold))
	require.Equal(t, largeClass, classOf(mediumThreshold))
}
