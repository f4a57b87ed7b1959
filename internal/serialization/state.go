package serialization

import (
	"fmt"
	"sort"

	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/tensor"
)

// StateDict collects the parameters of named layers as "<layer>.<param>"
// arrays. The arrays share memory with the layers. Layers that have not
// allocated their parameters yet are skipped.
func StateDict(layers map[string]nn.Trainable) map[string]*tensor.Array {
	dict := make(map[string]*tensor.Array)
	for name, l := range layers {
		params := l.Params()
		if !params.Allocated() {
			continue
		}
		for _, p := range params.Parameters() {
			dict[name+"."+p.Name()] = p.Value()
		}
	}
	return dict
}

// LoadStateDict copies dict into the named layers. Layers without allocated
// parameters are initialised first, which requires them to implement
// nn.Initializer. Every declared parameter must be present with its exact
// shape, and every entry of dict must be consumed.
func LoadStateDict(layers map[string]nn.Trainable, dict map[string]*tensor.Array) error {
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	used := 0
	for _, name := range names {
		params := layers[name].Params()
		if !params.Allocated() {
			init, ok := layers[name].(nn.Initializer)
			if !ok {
				return fmt.Errorf("load %q: layer has no parameters yet and cannot be initialised", name)
			}
			if err := init.Initialize(); err != nil {
				return fmt.Errorf("load %q: %w", name, err)
			}
		}
		for _, p := range params.Parameters() {
			key := name + "." + p.Name()
			src, ok := dict[key]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingTensor, key)
			}
			if !src.Shape().Equal(p.Shape()) {
				return tensor.Mismatch("load %s: stored shape %v, layer expects %v", key, src.Shape(), p.Shape())
			}
			copy(p.Value().Data(), src.Data())
			used++
		}
	}
	if used != len(dict) {
		for key := range dict {
			if !declared(layers, key) {
				return fmt.Errorf("%w: %s", ErrUnexpectedTensor, key)
			}
		}
	}
	return nil
}

func declared(layers map[string]nn.Trainable, key string) bool {
	for name, l := range layers {
		for _, p := range l.Params().Parameters() {
			if name+"."+p.Name() == key {
				return true
			}
		}
	}
	return false
}
