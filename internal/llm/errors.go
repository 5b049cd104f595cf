package llm

import "errors"

var (
	// ErrGenerationParse indicates the model response could not be parsed
	// into the expected structured format.
	ErrGenerationParse = errors.New("generation output could not be parsed")

	// ErrUnavailable indicates the model endpoint is unreachable.
	ErrUnavailable = errors.New("model endpoint unavailable")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("model retry attempts exhausted")
)
