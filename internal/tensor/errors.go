package tensor

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when an array's shape disagrees with the
// dimensions a layer (or a length record) has already fixed.
//
// It is always wrapped with context; test for it with errors.Is.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Mismatch wraps ErrDimensionMismatch with a formatted message.
func Mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDimensionMismatch, fmt.Sprintf(format, args...))
}
