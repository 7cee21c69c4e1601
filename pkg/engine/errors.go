package engine

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when the engine health probe fails.
var ErrEngineUnavailable = errors.New("engine unavailable")

// RequestError is a non-2xx engine response.
type RequestError struct {
	TenantID   string
	Operation  string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("engine %s for tenant %s failed (status %d): %s",
		e.Operation, e.TenantID, e.StatusCode, e.Message)
}
