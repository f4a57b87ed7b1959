// Package serialization saves and loads layer parameters in the SafeTensors
// format:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian float32, in name order]
//
// A state dict maps "<layer>.<param>" names to arrays. StateDict collects one
// from named layers and LoadStateDict copies one back, allocating layers that
// have not seen data yet. The writer stores a SHA-256 of the data section in
// the "sha256" metadata entry; the reader verifies it when present.
//
// Example usage:
//
//	layers := map[string]nn.Trainable{"hidden": hidden, "output": out}
//	if err := serialization.Write(f, serialization.StateDict(layers), nil); err != nil {
//	    return err
//	}
//
//	dict, meta, err := serialization.Read(f, tensor.CPU)
//	if err != nil {
//	    return err
//	}
//	err = serialization.LoadStateDict(layers, dict)
package serialization
