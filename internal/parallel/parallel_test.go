package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}

	n := 257
	hits := make([]int32, n)
	Range(n, func(lo, hi int) {
		if lo >= hi {
			t.Errorf("empty range [%d, %d)", lo, hi)
		}
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	}, cfg)

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestRange_Sequential(t *testing.T) {
	calls := 0
	Range(100, func(lo, hi int) {
		calls++
		if lo != 0 || hi != 100 {
			t.Errorf("Expected [0, 100), got [%d, %d)", lo, hi)
		}
	}, Sequential())

	if calls != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}

func TestRange_Empty(t *testing.T) {
	Range(0, func(_, _ int) {
		t.Error("f must not be called for n == 0")
	}, DefaultConfig())
}

func TestFor_SmallChunk(t *testing.T) {
	// Small work units fall back to sequential.
	cfg := DefaultConfig()

	var counter int64
	n := cfg.MinChunkSize - 1

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func BenchmarkRange(b *testing.B) {
	cfg := DefaultConfig()
	data := make([]float32, 1<<16)

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Range(len(data), func(lo, hi int) {
				for j := lo; j < hi; j++ {
					data[j] += 1
				}
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Range(len(data), func(lo, hi int) {
				for j := lo; j < hi; j++ {
					data[j] += 1
				}
			}, Sequential())
		}
	})
}
