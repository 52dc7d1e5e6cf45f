package ngram

import "errors"

var (
	// ErrInvalidOrder is returned when a Builder is created with n < 2.
	ErrInvalidOrder = errors.New("model order must be at least 2")
	// ErrSourceNotFound is returned when a training source cannot be opened.
	ErrSourceNotFound = errors.New("training source not found")
	// ErrIncompatibleModel is returned when merging builders of different order.
	ErrIncompatibleModel = errors.New("incompatible models: order differs")

	// ErrMalformedModel is returned when a persisted model is missing a required
	// field or holds invalid data.
	ErrMalformedModel = errors.New("malformed model")
	// ErrEmptyModel is returned when a persisted model has no context keys.
	ErrEmptyModel = errors.New("model has no context keys")
	// ErrInconsistentOrder is returned when context keys of one model differ in length.
	ErrInconsistentOrder = errors.New("context keys imply different orders")
	// ErrOrderMismatch is returned when a Generator loads a model whose order
	// differs from models it already holds.
	ErrOrderMismatch = errors.New("model order does not match loaded models")

	// ErrCountOverflow is returned when combining models would push a count
	// total past the range of int.
	ErrCountOverflow = errors.New("combined counts overflow")

	// ErrNoModel is returned when sampling is requested before any model was loaded.
	ErrNoModel = errors.New("no model loaded")
	// ErrBadSeedLength is returned when a seed does not hold exactly n-1 tokens.
	ErrBadSeedLength = errors.New("seed must hold n-1 tokens")
	// ErrNotStarted is returned when Step is called before Start.
	ErrNotStarted = errors.New("generation not started")
)
