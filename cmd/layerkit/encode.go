package main

import (
	"flag"
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/features"
	"github.com/born-ml/layerkit/internal/model"
)

// previewDims is the number of leading vector components printed per token.
const previewDims = 4

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	tokenizer := fs.String("tokenizer", "whitespace", "Tokenizer: whitespace or tiktoken")
	encoding := fs.String("encoding", features.DefaultEncoding, "tiktoken encoding name")
	seed := fs.Int64("seed", 0, "Initialisation seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no text given")
	}

	tok, err := newTokenizer(*tokenizer, *encoding)
	if err != nil {
		return err
	}
	docs, err := features.TokenizeAll(tok, fs.Args())
	if err != nil {
		return err
	}

	cfg, err := model.ConfigFromEnv(model.DefaultTok2VecConfig())
	if err != nil {
		return err
	}
	e := cpu.NewWithSeed(*seed)
	enc, err := model.Tok2Vec(e, cfg)
	if err != nil {
		return err
	}
	vecs, _, err := enc.Forward(docs, false)
	if err != nil {
		return err
	}

	fmt.Printf("Tokenizer: %s, width %d, depth %d, %d parameters\n\n", tok.Name(), enc.Width(), cfg.Depth, enc.NumParams())
	for i, doc := range docs {
		fmt.Printf("[%d] %q\n", i, doc.Text)
		width := enc.Width()
		data := vecs[i].Data()
		for j, t := range doc.Tokens {
			row := data[j*width : (j+1)*width]
			var sq float64
			for _, v := range row {
				sq += float64(v) * float64(v)
			}
			preview := make([]string, 0, previewDims)
			for _, v := range row[:min(previewDims, width)] {
				preview = append(preview, fmt.Sprintf("%+.3f", v))
			}
			fmt.Printf("  %-16q norm=%.3f  [%s ...]\n", t.Text, math.Sqrt(sq), strings.Join(preview, " "))
		}
	}
	return nil
}

func newTokenizer(name, encoding string) (features.Tokenizer, error) {
	switch name {
	case "whitespace":
		return features.NewWhitespace(), nil
	case "tiktoken":
		return features.NewTikToken(encoding)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}
