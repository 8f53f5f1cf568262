package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/appforge/internal/pipeline"
	"github.com/jonathan/appforge/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if errors.Is(err, pipeline.ErrNotFound) {
		return http.StatusNotFound
	}

	var validationErr *ErrValidation
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	var schemaErr *schemas.ValidationError
	if errors.As(err, &schemaErr) {
		return http.StatusBadRequest
	}

	// The upstream AI service failed; nothing the client sent was wrong.
	var genErr *pipeline.GenerationServiceError
	if errors.As(err, &genErr) {
		return http.StatusBadGateway
	}

	// Generation succeeded but the code never passed verification.
	var retriesErr *pipeline.RetriesExhaustedError
	if errors.As(err, &retriesErr) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
