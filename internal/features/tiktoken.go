package features

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used when none is named.
const DefaultEncoding = "cl100k_base"

// TikToken tokenises with an OpenAI BPE encoding through pkoukk/tiktoken-go.
//
// Every BPE piece becomes a Token whose Text is the decoded piece without
// its leading space and whose ID is the BPE token ID. Pieces that decode to
// whitespace only are dropped.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci-002, babbage-002
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding. The first load of an encoding may
// download its ranks file.
func NewTikToken(encodingName string) (*TikToken, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// NewTikTokenForModel loads the encoding of a model such as "gpt-4".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken for model %q: %w", modelName, err)
	}
	return &TikToken{encoding: encoding, name: modelName}, nil
}

// Name returns the encoding or model name.
func (t *TikToken) Name() string { return t.name }

// Tokenize splits text into BPE pieces.
func (t *TikToken) Tokenize(text string) (*Doc, error) {
	ids := t.encoding.EncodeOrdinary(text)
	doc := &Doc{Text: text, Tokens: make([]Token, 0, len(ids))}
	for _, id := range ids {
		piece := strings.TrimSpace(t.encoding.Decode([]int{id}))
		if piece == "" {
			continue
		}
		doc.Tokens = append(doc.Tokens, Token{Text: piece, ID: int32(id)}) //nolint:gosec // G115: BPE vocabularies are far below 2^31.
	}
	return doc, nil
}
