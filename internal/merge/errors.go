package merge

import (
	"errors"
	"fmt"
)

// ErrorKind is a coarse-grained categorization shared by the merge engine
// and the pipeline that drives it.
type ErrorKind string

const (
	KindShapeConflict     ErrorKind = "shape_conflict"
	KindConverterFailure  ErrorKind = "converter_failure"
	KindMalformedFragment ErrorKind = "malformed_fragment"
	KindMalformedSource   ErrorKind = "malformed_source"
	KindCancelled         ErrorKind = "cancelled"
)

// Sentinel errors for classification with errors.Is.
var (
	ErrShapeConflict     = errors.New("shape conflict")
	ErrMalformedFragment = errors.New("malformed fragment")
	ErrFrozen            = errors.New("release is frozen")
)

// PathError is returned by the path accessor when an existing value along
// the path is not a mapping.
type PathError struct {
	Op      string   // "ensure" or "set"
	Path    []string // full requested path
	Segment int      // index into Path of the offending segment
	Found   Shape    // shape found at that segment
}

func (e *PathError) Error() string {
	return fmt.Sprintf("merge: %s %s: segment %q holds a %s, want mapping",
		e.Op, JoinPath(e.Path), e.Path[e.Segment], e.Found)
}

func (e *PathError) Is(target error) bool {
	return target == ErrShapeConflict
}

// ErrorKind reports KindShapeConflict.
func (e *PathError) ErrorKind() ErrorKind {
	return KindShapeConflict
}

// kinded is implemented by errors that carry an ErrorKind.
type kinded interface {
	ErrorKind() ErrorKind
}

// KindOf returns the ErrorKind carried by err or any error it wraps, or ""
// when none does.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
