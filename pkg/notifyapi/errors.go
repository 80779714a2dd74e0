package notifyapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingUser    = errors.New("notifyapi: missing user header")
	ErrInvalidPayload = errors.New("notifyapi: invalid request payload")
	ErrEmptyContent   = errors.New("notifyapi: title or message is required")
	ErrInvalidBaseURL = errors.New("notifyapi: invalid base URL")

	ErrResponseTooLarge = errors.New("notifyapi: response too large")
)

// StatusError is returned by Client when the service answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	// Body holds at most the first kilobyte of the response.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notifyapi: %s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a StatusError with code 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
