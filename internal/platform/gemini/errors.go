package gemini

import "errors"

// Errors returned by the Processor.
var (
	// ErrInvalidConfig is returned when the processor configuration is invalid
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrInvalidInput is returned when an operation input fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error calling language model")
)
