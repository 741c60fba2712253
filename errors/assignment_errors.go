package errors

import "errors"

var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleConflict        = errors.New("role conflict")
	ErrInvalidRoleData     = errors.New("invalid role data")
	ErrAssignmentNotFound  = errors.New("role assignment not found")
	ErrAssignmentConflict  = errors.New("role already assigned to user")
	ErrInvalidAssignment   = errors.New("invalid role assignment data")
	ErrGroupPolicyNotFound = errors.New("group policy not found")
	ErrGroupPolicyConflict = errors.New("group policy conflict")
	ErrInvalidGroupPolicy  = errors.New("invalid group policy data")
	ErrUserPolicyNotFound  = errors.New("user policy not found")
	ErrUserPolicyConflict  = errors.New("user policy already assigned")
	ErrInvalidUserPolicy   = errors.New("invalid user policy data")
)
