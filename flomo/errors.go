package flomo

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the bearer token is invalid, expired,
// or lacks permission. Wrap checks should use errors.Is.
var ErrAuthentication = errors.New("flomo: authentication failed")

// APIError is a business-level error returned by the Flomo API (code != 0),
// or a non-200 HTTP response carrying the status code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flomo: api error %d: %s", e.Code, e.Message)
}
