package fhir

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the store has no resource with the requested id.
var ErrNotFound = errors.New("fhir: resource not found")

// APIError is a non-success response from the record store.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fhir: API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("fhir: API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 and 410 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && (e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone)
}

// StatusCode extracts the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
