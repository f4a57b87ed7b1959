package features

import (
	"unicode"
	"unicode/utf8"
)

// Whitespace splits text on whitespace and splits punctuation off words.
// Runs of letters, digits and marks stay together; every other character
// becomes a token of its own.
type Whitespace struct{}

// NewWhitespace creates the tokenizer.
func NewWhitespace() *Whitespace {
	return &Whitespace{}
}

// Name returns "whitespace".
func (w *Whitespace) Name() string { return "whitespace" }

// Tokenize splits text. Token IDs are -1.
func (w *Whitespace) Tokenize(text string) (*Doc, error) {
	doc := &Doc{Text: text}
	start := -1
	flush := func(end int) {
		if start >= 0 {
			doc.Tokens = append(doc.Tokens, Token{Text: text[start:end], ID: -1})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		default:
			flush(i)
			doc.Tokens = append(doc.Tokens, Token{Text: text[i : i+utf8.RuneLen(r)], ID: -1})
		}
	}
	flush(len(text))
	return doc, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '\'' || r == '_'
}
