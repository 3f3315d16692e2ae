package errs

import (
	"errors"
	"net/http"
)

// HTTPStatus maps a domain error to the HTTP status code handlers
// respond with. Unexpected errors fall through to 500.
func HTTPStatus(err error) int {
	var verr *ValidationError
	var terr *IllegalTransitionError
	var cerr *ConflictError
	var perr *PermissionError
	var nerr *NotFoundError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cerr):
		return http.StatusConflict
	case errors.As(err, &perr):
		return http.StatusForbidden
	case errors.As(err, &nerr):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
