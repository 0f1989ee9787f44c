package rsh

import (
	"errors"

	"github.com/equigo/harmonics/legendre"
)

// ErrInvalidDegree is legendre.ErrInvalidDegree, re-exported so callers can
// match degree failures without importing the coefficient package.
var ErrInvalidDegree = legendre.ErrInvalidDegree

var (
	// ErrEmptyDegrees is returned when a degree sequence has no entries.
	ErrEmptyDegrees = errors.New("rsh: degree sequence is empty")

	// ErrShapeMismatch is returned when input slices disagree on length.
	ErrShapeMismatch = errors.New("rsh: input lengths do not match")

	// ErrDegenerateVector is returned by direction-based evaluation when any
	// input vector is too close to zero to define a direction. The whole
	// batch is rejected; no partial results are produced.
	ErrDegenerateVector = errors.New("rsh: input vector has near-zero norm")

	// ErrNativeUnavailable signals that an accelerated evaluator cannot
	// serve a request, typically because the maximum degree exceeds its
	// supported range. The engine treats it as a routing hint and falls
	// back to the general path.
	ErrNativeUnavailable = errors.New("rsh: native evaluator unavailable for request")
)
