package bvh

import "errors"

var (
	ErrZeroItems        = errors.New("bvh: at least one input box is required")
	ErrInvalidDimension = errors.New("bvh: dimension must be 2 or 3")
	ErrBoxesLength      = errors.New("bvh: boxes length must equal 2*dimension*numItems")
	ErrInvalidScale     = errors.New("bvh: scale factor must be positive")
	ErrNotBuilt         = errors.New("bvh: index has not been built")
	ErrNilCoords        = errors.New("bvh: required query coordinate array is nil")
	ErrNilPredicate     = errors.New("bvh: traversal predicates and action must be non-nil")
	ErrCoordsLength     = errors.New("bvh: query coordinate arrays must have equal length")
	ErrOutputSize       = errors.New("bvh: offsets and counts must be sized to the query count")
)
