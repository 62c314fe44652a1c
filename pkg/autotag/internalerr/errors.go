package internalerr

import "errors"

// Sentinel errors for common cases
var (
	// ErrNotFitted is returned when prediction or extraction is attempted
	// before the component has been trained or loaded.
	ErrNotFitted = errors.New("not fitted")

	// ErrNotFound is returned for unknown product ids.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch is returned when training inputs are empty or
	// unequal in length, or when a feature vector does not match the
	// fitted generation's width.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyCorpus is returned when fitting a text extractor leaves no
	// usable documents or terms.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrInsufficientData is returned when initial training has no
	// complete records to learn from.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrPersistence wraps save/load I/O and deserialization failures.
	ErrPersistence = errors.New("persistence failure")
)
