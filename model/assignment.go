// api/model/assignment.go
package model

import "time"

// Policy group matching dimensions
const (
	GroupTypeDepartment     = "department"
	GroupTypeLocation       = "location"
	GroupTypeJobLevel       = "job_level"
	GroupTypeEmploymentType = "employment_type"
)

// Role assignment scopes
const (
	ScopeGlobal       = "global"
	ScopeOrganization = "organization"
	ScopeBranch       = "branch"
	ScopeDepartment   = "department"
)

// UserPolicy is a direct policy grant to a user. A user holds at most one
// grant per policy.
type UserPolicy struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	PolicyID         string     `json:"policy_id"`
	Policy           *Policy    `json:"policy,omitempty"`
	PriorityOverride *int       `json:"priority_override,omitempty"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidUntil       *time.Time `json:"valid_until,omitempty"`
	Active           bool       `json:"active"`
	AssignedBy       string     `json:"assigned_by,omitempty"`
	AssignedAt       time.Time  `json:"assigned_at"`
	OrganizationID   string     `json:"organization_id"`
}

// GroupPolicy carries policies for every user whose computed subject
// attribute matches (group_type, group_value). There is no membership roster;
// matching happens at evaluation time.
type GroupPolicy struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	GroupType      string    `json:"group_type"` // "department", "location", "job_level" or "employment_type"
	GroupValue     string    `json:"group_value"`
	Policies       []Policy  `json:"policies,omitempty"`
	Active         bool      `json:"active"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Role struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Policies       []Policy  `json:"policies,omitempty"`
	Active         bool      `json:"active"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RoleAssignment struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RoleID         string     `json:"role_id"`
	Role           *Role      `json:"role,omitempty"`
	Scope          string     `json:"scope"` // "global", "organization", "branch" or "department"
	ScopeID        string     `json:"scope_id,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	Active         bool       `json:"active"`
	AssignedBy     string     `json:"assigned_by,omitempty"`
	AssignedAt     time.Time  `json:"assigned_at"`
	OrganizationID string     `json:"organization_id"`
}

// IsCurrentlyValid reports whether the grant is active and inside its
// validity window at the given instant.
func (up *UserPolicy) IsCurrentlyValid(now time.Time) bool {
	return validityHolds(up.Active, up.ValidFrom, up.ValidUntil, now)
}

// IsCurrentlyValid reports whether the assignment is active and inside its
// validity window at the given instant.
func (ra *RoleAssignment) IsCurrentlyValid(now time.Time) bool {
	return validityHolds(ra.Active, ra.ValidFrom, ra.ValidUntil, now)
}

// EffectivePriority returns the grant's priority override when set, otherwise
// the policy's own priority.
func (up *UserPolicy) EffectivePriority() int {
	if up.PriorityOverride != nil {
		return *up.PriorityOverride
	}
	if up.Policy != nil {
		return up.Policy.Priority
	}
	return 0
}

func validityHolds(active bool, from, until *time.Time, now time.Time) bool {
	if !active {
		return false
	}
	if from != nil && now.Before(*from) {
		return false
	}
	if until != nil && now.After(*until) {
		return false
	}
	return true
}
