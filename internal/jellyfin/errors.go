package jellyfin

import (
	"errors"
	"fmt"
)

// ErrorKind classifies client failures.
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindDecode       ErrorKind = "decode"
	KindServer       ErrorKind = "server"
	KindPrecondition ErrorKind = "precondition"
)

// APIError is returned by every Client method.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Path    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status > 0 && e.Message != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Path, e.Status, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("%s returned status %d", e.Path, e.Status)
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

func precondition(msg string) error {
	return &APIError{Kind: KindPrecondition, Message: msg}
}
