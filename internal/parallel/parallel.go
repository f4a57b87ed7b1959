// Package parallel splits data-parallel loops of the CPU engine across goroutines.
//
// Every call blocks until all work is done; callers see synchronous semantics.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// Range calls f(lo, hi) over disjoint half-open ranges covering [0, n).
//
// Ranges are contiguous so f can work on sub-slices directly. Small n, or a
// disabled config, runs a single f(0, n) on the calling goroutine.
func Range(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	workers := cfg.NumWorkers
	if !cfg.Enabled || workers < 2 || n < 2*max(cfg.MinChunkSize, 1) {
		f(0, n)
		return
	}

	chunk := max((n+workers-1)/workers, cfg.MinChunkSize)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// For executes f(i) for i in [0, n), chunked as Range does.
func For(n int, f func(i int), cfg Config) {
	Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	}, cfg)
}
