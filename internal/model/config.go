package model

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override, e.g. LAYERKIT_EMBED_SIZE.
const EnvPrefix = "LAYERKIT_"

// Tok2VecConfig sizes the token encoder. Zero fields take the defaults
// listed below when passed to Tok2Vec.
type Tok2VecConfig struct {
	Width       int    // Token vector width (default: 128)
	EmbedSize   int    // Rows of the NORM table; the others get half (default: 7000)
	EmbedPieces int    // Maxout pieces of the embedding mix (default: 3)
	CNNPieces   int    // Maxout pieces of every convolution (default: 2)
	Depth       int    // Number of residual convolutions (default: 4)
	Window      int    // Neighbours on each side per convolution (default: 1)
	Pad         int    // Pad rows between flattened documents (default: 4)
	Seed        uint32 // Base seed of the hash embeddings (default: 0)
}

// DefaultTok2VecConfig returns the encoder defaults.
func DefaultTok2VecConfig() Tok2VecConfig {
	return Tok2VecConfig{
		Width:       128,
		EmbedSize:   7000,
		EmbedPieces: 3,
		CNNPieces:   2,
		Depth:       4,
		Window:      1,
		Pad:         4,
	}
}

func (c Tok2VecConfig) withDefaults() Tok2VecConfig {
	d := DefaultTok2VecConfig()
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.EmbedSize == 0 {
		c.EmbedSize = d.EmbedSize
	}
	if c.EmbedPieces == 0 {
		c.EmbedPieces = d.EmbedPieces
	}
	if c.CNNPieces == 0 {
		c.CNNPieces = d.CNNPieces
	}
	if c.Depth == 0 {
		c.Depth = d.Depth
	}
	if c.Window == 0 {
		c.Window = d.Window
	}
	if c.Pad == 0 {
		c.Pad = d.Pad
	}
	return c
}

// Validate reports sizes that cannot build an encoder.
func (c Tok2VecConfig) Validate() error {
	switch {
	case c.Width < 0, c.EmbedSize < 0, c.EmbedPieces < 0, c.CNNPieces < 0:
		return fmt.Errorf("tok2vec: negative size in %+v", c)
	case c.Depth < 0, c.Window < 0, c.Pad < 0:
		return fmt.Errorf("tok2vec: negative depth, window or pad in %+v", c)
	case c.Pad > 0 && c.Pad < c.Window:
		return fmt.Errorf("tok2vec: pad %d is narrower than window %d; windows would cross documents", c.Pad, c.Window)
	}
	return nil
}

// ConfigFromEnv starts from base and overrides every field whose variable
// is set: LAYERKIT_TOKEN_VECTOR_WIDTH, LAYERKIT_EMBED_SIZE,
// LAYERKIT_EMBED_PIECES, LAYERKIT_CNN_MAXOUT_PIECES, LAYERKIT_CONV_DEPTH,
// LAYERKIT_CONV_WINDOW, LAYERKIT_PAD and LAYERKIT_SEED. A set but
// malformed value is an error.
func ConfigFromEnv(base Tok2VecConfig) (Tok2VecConfig, error) {
	ints := []struct {
		name string
		dst  *int
	}{
		{"token_vector_width", &base.Width},
		{"embed_size", &base.EmbedSize},
		{"embed_pieces", &base.EmbedPieces},
		{"cnn_maxout_pieces", &base.CNNPieces},
		{"conv_depth", &base.Depth},
		{"conv_window", &base.Window},
		{"pad", &base.Pad},
	}
	for _, opt := range ints {
		if err := envInt(opt.name, opt.dst); err != nil {
			return base, err
		}
	}
	seed := int(base.Seed)
	if err := envInt("seed", &seed); err != nil {
		return base, err
	}
	if seed < 0 {
		return base, fmt.Errorf("%s: negative seed %d", envName("seed"), seed)
	}
	base.Seed = uint32(seed) //nolint:gosec // G115: checked non-negative above.
	return base, nil
}

func envName(name string) string {
	return EnvPrefix + strings.ToUpper(name)
}

func envInt(name string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(envName(name)))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", envName(name), err)
	}
	*dst = n
	return nil
}
