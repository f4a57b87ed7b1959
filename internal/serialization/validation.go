package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// tensorSpan is the byte range of one tensor in the data section.
type tensorSpan struct {
	name       string
	begin, end int64
	elements   int64
}

// validateSpans checks that every tensor lies inside the data section, that
// no two overlap, and that sizes agree with shapes.
func validateSpans(spans []tensorSpan, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return &ValidationError{Type: "too_many_tensors", Details: fmt.Sprintf("got %d, max %d", len(spans), MaxTensorCount)}
	}
	sorted := make([]tensorSpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].begin < sorted[j].begin })

	for i, s := range sorted {
		switch {
		case s.begin < 0 || s.end < s.begin:
			return &ValidationError{Type: "negative_offset", Tensor: s.name, Details: fmt.Sprintf("offsets [%d, %d]", s.begin, s.end)}
		case s.end > dataSize:
			return &ValidationError{Type: "out_of_bounds", Tensor: s.name, Details: fmt.Sprintf("end %d > data size %d", s.end, dataSize)}
		case s.end-s.begin != s.elements*4:
			return &ValidationError{Type: "size_mismatch", Tensor: s.name, Details: fmt.Sprintf("%d bytes for %d float32 values", s.end-s.begin, s.elements)}
		}
		if i+1 < len(sorted) && s.end > sorted[i+1].begin {
			next := sorted[i+1]
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  s.name,
				Tensor2: next.name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", s.begin, s.end, next.begin, next.end),
			}
		}
	}
	return nil
}

// validateName rejects empty, oversized and control-character names.
func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{Type: "name_too_long", Tensor: name, Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen)}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}
