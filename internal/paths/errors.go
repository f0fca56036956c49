package paths

import "errors"

// Sentinel error kinds. All are fatal to the caller that triggers them:
// a worker that hits one must surface it upward rather than continue
// with a corrupted PathData.
var (
	// ErrMalformedRoute is returned by NewRoute when the AS path is empty.
	ErrMalformedRoute = errors.New("paths: malformed route")

	// ErrInvariantViolation marks a broken precondition on AsPath or
	// OriginAsPaths operations (programming error, not bad input).
	ErrInvariantViolation = errors.New("paths: invariant violation")

	// ErrEmptyMerge is returned by MergePathData when given no inputs.
	ErrEmptyMerge = errors.New("paths: empty merge")
)
