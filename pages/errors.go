package pages

import (
	"errors"
	"net/http"

	"github.com/eringen/wikiengine/storage"
)

// StatusError is a lookup failure reported to callers with a message and a
// status code rather than as a storage fault.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	return e.Message
}

var (
	// ErrNotFound means the key is absent from every source in the fallback
	// chain.
	ErrNotFound = &StatusError{Message: "Page not found", Code: http.StatusNotFound}
	// ErrParse means the stored document is not well-formed JSON.
	ErrParse = &StatusError{Message: "Error Parsing Page", Code: http.StatusNotFound}
	// ErrNotExists is returned by Delete and Recycle when the target is absent.
	ErrNotExists = errors.New("page does not exist")
	// ErrUnknownAction is returned for a request the queue cannot dispatch.
	ErrUnknownAction = errors.New("pages: unrecognized action")
)

// StatusCode maps an error returned by a Handler to an HTTP status code.
func StatusCode(err error) int {
	var se *StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrNotExists):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
