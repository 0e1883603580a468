package domain

import "errors"

// Domain errors returned by use cases and repositories. Callers match them
// with errors.Is.
var (
	ErrResourceNotFound   = errors.New("resource not found")
	ErrOutOfRange         = errors.New("max distance reached")
	ErrDuplicateCheckIn   = errors.New("max number of check-ins reached")
	ErrLateValidation     = errors.New("the check-in can only be validated until 20 minutes of its creation")
	ErrAlreadyValidated   = errors.New("check-in already validated")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCoordinates = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrEmptyTitle         = errors.New("gym title must not be empty")
)

// NotFoundError names the missing resource. It matches ErrResourceNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

// NotFound builds a NotFoundError for resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}
