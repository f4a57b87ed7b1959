// Package features turns text into the integer key matrices the embedding
// layers consume.
//
// A Tokenizer splits text into a Doc of Tokens. Attribute functions (ORTH,
// LOWER, NORM, PREFIX, SUFFIX, SHAPE, ID) map every token to a 64-bit key,
// hashing string attributes with murmur3. The Extracter layer stacks the
// keys of a batch of Docs into one tensor.Keys matrix per Doc.
package features

// Token is one unit of a tokenised text.
type Token struct {
	// Text is the token's surface form, without surrounding whitespace.
	Text string

	// ID is the tokenizer's vocabulary ID, or -1 when the tokenizer has no
	// vocabulary.
	ID int32
}

// Doc is a tokenised text.
type Doc struct {
	Text   string
	Tokens []Token
}

// Len returns the number of tokens.
func (d *Doc) Len() int {
	return len(d.Tokens)
}

// Words returns the token texts in order.
func (d *Doc) Words() []string {
	words := make([]string, len(d.Tokens))
	for i, t := range d.Tokens {
		words[i] = t.Text
	}
	return words
}

// Tokenizer splits text into tokens.
type Tokenizer interface {
	// Tokenize returns the Doc for text.
	Tokenize(text string) (*Doc, error)

	// Name returns the tokenizer name.
	Name() string
}

// TokenizeAll runs tok over every text.
func TokenizeAll(tok Tokenizer, texts []string) ([]*Doc, error) {
	docs := make([]*Doc, len(texts))
	for i, text := range texts {
		doc, err := tok.Tokenize(text)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}
