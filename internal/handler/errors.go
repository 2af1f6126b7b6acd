package handler

import "fmt"

// ValidationError is a caller mistake detected before the store is touched.
// It renders as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that the addressed diagram does not exist.  It
// renders as 404.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Diagram with ID '%d' not found", e.ID)
}
