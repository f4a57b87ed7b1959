//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU engine. Matrix products and additions
// run as WGSL compute shaders; everything else falls back to the CPU engine.
//
// Example:
//
//	import (
//	    "github.com/born-ml/layerkit/backend/cpu"
//	    "github.com/born-ml/layerkit/backend/webgpu"
//	    "github.com/born-ml/layerkit/tensor"
//	)
//
//	func engine() tensor.Engine {
//	    if webgpu.IsAvailable() {
//	        if gpu, err := webgpu.New(); err == nil {
//	            return gpu
//	        }
//	    }
//	    return cpu.New()
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/layerkit/internal/backend/webgpu"
	"github.com/born-ml/layerkit/tensor"
)

// Backend is the WebGPU engine. Call Release when done to free GPU resources.
type Backend = internalwebgpu.Backend

// Config configures a WebGPU engine.
type Config = internalwebgpu.Config

// Compile-time check that Backend implements tensor.Engine.
var _ tensor.Engine = (*Backend)(nil)

// DefaultConfig returns the default dispatch threshold.
func DefaultConfig() Config {
	return internalwebgpu.DefaultConfig()
}

// New creates a WebGPU engine.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// NewWithConfig creates a WebGPU engine from an explicit config.
func NewWithConfig(cfg Config) (*Backend, error) {
	return internalwebgpu.NewWithConfig(cfg)
}

// IsAvailable checks if a WebGPU adapter can be created on this system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
