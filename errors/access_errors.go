// api/errors/access_errors.go
package errors

import "errors"

var (
	ErrMissingTenantContext = errors.New("missing tenant context")
	ErrTenantMismatch       = errors.New("tenant mismatch")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidRequestData   = errors.New("invalid request data")
)
