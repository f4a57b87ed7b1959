package model

import (
	"fmt"
	"io"
	"strconv"

	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/serialization"
)

// taggerFormat tags files written by Tagger.Save.
const taggerFormat = "layerkit.tagger.v1"

// Layers returns every parameterised layer of the tagger by a stable name:
// "tok2vec.NN" for the encoder layers in construction order and "output"
// for the Softmax.
func (t *Tagger) Layers() map[string]nn.Trainable {
	layers := make(map[string]nn.Trainable, len(t.encoder.trainable)+1)
	for i, l := range t.encoder.trainable {
		layers[fmt.Sprintf("tok2vec.%02d", i)] = l
	}
	layers["output"] = t.output
	return layers
}

// Save writes the tagger's parameters in SafeTensors format. Layers that
// have not seen data are initialised first so the file is always complete.
func (t *Tagger) Save(w io.Writer) error {
	layers := t.Layers()
	for name, l := range layers {
		if l.Params().Allocated() {
			continue
		}
		if init, ok := l.(nn.Initializer); ok {
			if err := init.Initialize(); err != nil {
				return fmt.Errorf("save tagger: %s: %w", name, err)
			}
		}
	}
	meta := map[string]string{
		"format":  taggerFormat,
		"width":   strconv.Itoa(t.encoder.Width()),
		"classes": strconv.Itoa(t.numClasses()),
	}
	return serialization.Write(w, serialization.StateDict(layers), meta)
}

// Load replaces the tagger's parameters with those written by Save. The
// tagger must have been built with the same configuration.
func (t *Tagger) Load(r io.Reader) error {
	dict, meta, err := serialization.Read(r, t.engine.Device())
	if err != nil {
		return fmt.Errorf("load tagger: %w", err)
	}
	if meta["format"] != taggerFormat {
		return fmt.Errorf("load tagger: unexpected format %q", meta["format"])
	}
	for key, want := range map[string]int{"width": t.encoder.Width(), "classes": t.numClasses()} {
		if got, err := strconv.Atoi(meta[key]); err != nil || got != want {
			return fmt.Errorf("load tagger: file has %s %q, tagger has %d", key, meta[key], want)
		}
	}
	if err := serialization.LoadStateDict(t.Layers(), dict); err != nil {
		return fmt.Errorf("load tagger: %w", err)
	}
	return nil
}

func (t *Tagger) numClasses() int {
	_, nO := t.output.Dims()
	return nO
}
