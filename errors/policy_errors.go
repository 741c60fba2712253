// api/errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound        = errors.New("policy not found")
	ErrPolicyConflict        = errors.New("policy conflict")
	ErrInvalidPolicyData     = errors.New("invalid policy data")
	ErrAttributeTypeNotFound = errors.New("attribute type not found")
	ErrAttributeTypeConflict = errors.New("attribute type conflict")
	ErrInvalidAttributeType  = errors.New("invalid attribute type data")
	ErrDatabaseOperation     = errors.New("database operation failed")
	ErrInternalServer        = errors.New("internal server error")
	ErrInvalidPagination     = errors.New("invalid pagination parameters")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)
