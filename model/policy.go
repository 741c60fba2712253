// api/model/policy.go
package model

import (
	"time"
)

// Policy effects
const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// Rule combine logic
const (
	CombineAND = "AND"
	CombineOR  = "OR"
)

// Attribute categories
const (
	CategorySubject     = "subject"
	CategoryResource    = "resource"
	CategoryAction      = "action"
	CategoryEnvironment = "environment"
)

// Attribute data types
const (
	DataTypeString  = "string"
	DataTypeNumber  = "number"
	DataTypeBoolean = "boolean"
	DataTypeDate    = "date"
	DataTypeTime    = "time"
	DataTypeList    = "list"
)

// Rule operators
const (
	OpEquals      = "eq"
	OpNotEquals   = "neq"
	OpGreater     = "gt"
	OpGreaterEq   = "gte"
	OpLess        = "lt"
	OpLessEq      = "lte"
	OpIn          = "in"
	OpNotIn       = "not_in"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpRegex       = "regex"
)

// AttributeType declares an attribute that policy rules may reference.
// Identity within a tenant is the (organization_id, code) pair.
type AttributeType struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`  // "subject", "resource", "action" or "environment"
	DataType       string    `json:"data_type"` // "string", "number", "boolean", "date", "time" or "list"
	AllowedValues  []string  `json:"allowed_values,omitempty"`
	OrganizationID string    `json:"organization_id"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Policy struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Effect         string       `json:"effect"` // "allow" or "deny"
	Priority       int          `json:"priority"`
	ResourceType   string       `json:"resource_type,omitempty"` // empty matches any resource type
	ResourceID     string       `json:"resource_id,omitempty"`   // empty matches any resource instance
	Actions        []string     `json:"actions,omitempty"`       // empty matches any action
	CombineLogic   string       `json:"combine_logic"`           // "AND" or "OR"
	Rules          []PolicyRule `json:"rules,omitempty"`
	ValidFrom      *time.Time   `json:"valid_from,omitempty"`
	ValidUntil     *time.Time   `json:"valid_until,omitempty"`
	Active         bool         `json:"active"`
	OrganizationID string       `json:"organization_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PolicyRule is a single attribute condition owned by a policy. The rule's
// tenant is always the owning policy's tenant.
type PolicyRule struct {
	ID                string `json:"id"`
	AttributeCategory string `json:"attribute_category"`
	AttributeCode     string `json:"attribute_code"`
	AttributePath     string `json:"attribute_path"` // dotted path into the category's attribute map
	Operator          string `json:"operator"`
	Value             any    `json:"value"`
	Negate            bool   `json:"negate"`
	Active            bool   `json:"active"`
}

// IsCurrentlyActive reports whether the policy is active and inside its
// validity window at the given instant.
func (p *Policy) IsCurrentlyActive(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}

// AppliesToAction reports whether the policy covers the action. An empty
// action list covers every action.
func (p *Policy) AppliesToAction(action string) bool {
	if len(p.Actions) == 0 {
		return true
	}
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// AppliesToResource reports whether the policy covers the resource. Empty
// resource type or id on either side acts as a wildcard.
func (p *Policy) AppliesToResource(resourceType, resourceID string) bool {
	if p.ResourceType != "" && resourceType != "" && p.ResourceType != resourceType {
		return false
	}
	if p.ResourceID != "" && resourceID != "" && p.ResourceID != resourceID {
		return false
	}
	return true
}

// ActiveRules returns the policy's active rules.
func (p *Policy) ActiveRules() []PolicyRule {
	rules := make([]PolicyRule, 0, len(p.Rules))
	for _, r := range p.Rules {
		if r.Active {
			rules = append(rules, r)
		}
	}
	return rules
}

type PolicySearchCriteria struct {
	Name         string
	Effect       string
	ResourceType string
	Action       string
	MinPriority  int
	MaxPriority  int
	Active       *bool
	Limit        int
	Offset       int
}
