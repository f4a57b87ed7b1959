package features

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spaolacci/murmur3"
)

// Attr names a token attribute that can be turned into a key.
type Attr int

// Token attributes.
const (
	ID Attr = iota
	ORTH
	LOWER
	NORM
	PREFIX
	SUFFIX
	SHAPE
)

var attrNames = [...]string{
	ID:     "ID",
	ORTH:   "ORTH",
	LOWER:  "LOWER",
	NORM:   "NORM",
	PREFIX: "PREFIX",
	SUFFIX: "SUFFIX",
	SHAPE:  "SHAPE",
}

// String returns the attribute name.
func (a Attr) String() string {
	if a < 0 || int(a) >= len(attrNames) {
		return fmt.Sprintf("Attr(%d)", int(a))
	}
	return attrNames[a]
}

// ParseAttr returns the attribute with the given (case-insensitive) name.
func ParseAttr(name string) (Attr, error) {
	for i, n := range attrNames {
		if strings.EqualFold(n, name) {
			return Attr(i), nil
		}
	}
	return 0, fmt.Errorf("unknown token attribute %q", name)
}

// Value returns the string form of the attribute for tok. ID has no string
// form and returns "".
func (a Attr) Value(tok Token) string {
	switch a {
	case ORTH:
		return tok.Text
	case LOWER, NORM:
		return strings.ToLower(tok.Text)
	case PREFIX:
		return prefix(tok.Text)
	case SUFFIX:
		return suffix(tok.Text)
	case SHAPE:
		return Shape(tok.Text)
	default:
		return ""
	}
}

// Key returns the 64-bit key of the attribute for tok: the token ID for ID
// (0 when the tokenizer has none), the murmur3 hash of Value otherwise.
func (a Attr) Key(tok Token) uint64 {
	if a == ID {
		if tok.ID < 0 {
			return 0
		}
		return uint64(tok.ID)
	}
	return HashString(a.Value(tok))
}

// HashString is the string hash behind every string-valued key.
func HashString(s string) uint64 {
	return murmur3.Sum64([]byte(s))
}

func prefix(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func suffix(s string) string {
	runes := []rune(s)
	if len(runes) > 3 {
		runes = runes[len(runes)-3:]
	}
	return string(runes)
}

// Shape maps letters to "X"/"x" by case and digits to "d", keeps other
// characters, and truncates runs of the same shape character after four:
// "Mississippi" becomes "Xxxxx" and "1990s" becomes "ddddx".
func Shape(s string) string {
	var b strings.Builder
	var last rune
	run := 0
	for _, r := range s {
		var c rune
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c == last {
			run++
		} else {
			last, run = c, 1
		}
		if run <= 4 {
			b.WriteRune(c)
		}
	}
	return b.String()
}
