package mesh

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrInternal marks a violated mesh invariant. It is a programmer error:
// the current meshing unit must be abandoned.
var ErrInternal = errors.New("mesh: internal invariant violated")

// ErrDegenerate is returned when an operation is asked to build a
// triangle from aligned or coincident points.
var ErrDegenerate = errors.New("mesh: degenerate configuration")

// internalf returns an ErrInternal carrying a stack trace.
func internalf(format string, args ...interface{}) error {
	return pkgerrors.WithStack(fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...)))
}

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}
