package llm

import "fmt"

// GenerationError indicates the generation service itself failed: transport
// errors, malformed response envelopes, or an empty completion. It is
// distinct from a verification failure, which describes a defect in otherwise
// successfully returned code.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("generation error: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a GenerationError wrapping an optional cause.
func NewGenerationError(message string, cause error) *GenerationError {
	return &GenerationError{Message: message, Cause: cause}
}
