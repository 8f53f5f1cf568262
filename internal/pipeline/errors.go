package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested requirement or app does not exist or
// is not owned by the caller. Both cases surface identically so that probing
// cannot reveal the existence of another user's records.
var ErrNotFound = errors.New("not found")

// GenerationServiceError indicates the external AI call failed or returned
// an unusable envelope. It is terminal for the current cycle: the retry loop
// never re-attempts it, since only verification failures are plausibly fixed
// by a follow-up generation.
type GenerationServiceError struct {
	AppID uuid.UUID
	Cause error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service failed for app %s: %v", e.AppID, e.Cause)
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Cause
}

// RetriesExhaustedError indicates every verification attempt within the
// retry bound failed. Diagnostic is the last verifier finding.
type RetriesExhaustedError struct {
	AppID      uuid.UUID
	Attempts   int
	Diagnostic string
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("verification failed after %d attempts for app %s: %s",
		e.Attempts, e.AppID, e.Diagnostic)
}
