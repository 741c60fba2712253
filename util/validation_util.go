// api/util/validation_util.go

package util

import (
	"fmt"
	"regexp"

	"github.com/lumenhr/aegis/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

var validOperators = map[string]bool{
	model.OpEquals:      true,
	model.OpNotEquals:   true,
	model.OpGreater:     true,
	model.OpGreaterEq:   true,
	model.OpLess:        true,
	model.OpLessEq:      true,
	model.OpIn:          true,
	model.OpNotIn:       true,
	model.OpContains:    true,
	model.OpNotContains: true,
	model.OpStartsWith:  true,
	model.OpEndsWith:    true,
	model.OpRegex:       true,
}

var validCategories = map[string]bool{
	model.CategorySubject:     true,
	model.CategoryResource:    true,
	model.CategoryAction:      true,
	model.CategoryEnvironment: true,
}

var validDataTypes = map[string]bool{
	model.DataTypeString:  true,
	model.DataTypeNumber:  true,
	model.DataTypeBoolean: true,
	model.DataTypeDate:    true,
	model.DataTypeTime:    true,
	model.DataTypeList:    true,
}

var validGroupTypes = map[string]bool{
	model.GroupTypeDepartment:     true,
	model.GroupTypeLocation:       true,
	model.GroupTypeJobLevel:       true,
	model.GroupTypeEmploymentType: true,
}

var validScopes = map[string]bool{
	model.ScopeGlobal:       true,
	model.ScopeOrganization: true,
	model.ScopeBranch:       true,
	model.ScopeDepartment:   true,
}

func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if policy.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if policy.Effect != model.EffectAllow && policy.Effect != model.EffectDeny {
		return fmt.Errorf("policy effect must be either 'allow' or 'deny'")
	}
	if policy.Priority < 0 {
		return fmt.Errorf("policy priority cannot be negative")
	}
	if policy.CombineLogic != "" && policy.CombineLogic != model.CombineAND && policy.CombineLogic != model.CombineOR {
		return fmt.Errorf("policy combine logic must be either 'AND' or 'OR'")
	}
	if policy.OrganizationID == "" {
		return fmt.Errorf("policy organization ID cannot be empty")
	}
	if policy.ValidFrom != nil && policy.ValidUntil != nil && policy.ValidUntil.Before(*policy.ValidFrom) {
		return fmt.Errorf("policy validity window ends before it starts")
	}
	for i, rule := range policy.Rules {
		if err := v.ValidatePolicyRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidatePolicyRule(rule model.PolicyRule) error {
	if !validCategories[rule.AttributeCategory] {
		return fmt.Errorf("unknown attribute category: %s", rule.AttributeCategory)
	}
	if rule.AttributeCode == "" {
		return fmt.Errorf("rule attribute code cannot be empty")
	}
	if rule.AttributePath == "" {
		return fmt.Errorf("rule attribute path cannot be empty")
	}
	if !validOperators[rule.Operator] {
		return fmt.Errorf("unknown rule operator: %s", rule.Operator)
	}
	if rule.Operator == model.OpRegex {
		pattern, ok := rule.Value.(string)
		if !ok {
			return fmt.Errorf("regex rule value must be a string pattern")
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateAttributeType(attributeType model.AttributeType) error {
	if attributeType.Code == "" {
		return fmt.Errorf("attribute type code cannot be empty")
	}
	if attributeType.Name == "" {
		return fmt.Errorf("attribute type name cannot be empty")
	}
	if !validCategories[attributeType.Category] {
		return fmt.Errorf("unknown attribute category: %s", attributeType.Category)
	}
	if !validDataTypes[attributeType.DataType] {
		return fmt.Errorf("unknown attribute data type: %s", attributeType.DataType)
	}
	if attributeType.OrganizationID == "" {
		return fmt.Errorf("attribute type organization ID cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateRole(role model.Role) error {
	if role.Name == "" {
		return fmt.Errorf("role name cannot be empty")
	}
	if role.OrganizationID == "" {
		return fmt.Errorf("role organization ID cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateRoleAssignment(assignment model.RoleAssignment) error {
	if assignment.UserID == "" {
		return fmt.Errorf("assignment user ID cannot be empty")
	}
	if assignment.RoleID == "" {
		return fmt.Errorf("assignment role ID cannot be empty")
	}
	if assignment.OrganizationID == "" {
		return fmt.Errorf("assignment organization ID cannot be empty")
	}
	if assignment.Scope != "" && !validScopes[assignment.Scope] {
		return fmt.Errorf("unknown assignment scope: %s", assignment.Scope)
	}
	if assignment.ValidFrom != nil && assignment.ValidUntil != nil && assignment.ValidUntil.Before(*assignment.ValidFrom) {
		return fmt.Errorf("assignment validity window ends before it starts")
	}
	return nil
}

func (v *ValidationUtil) ValidateGroupPolicy(groupPolicy model.GroupPolicy) error {
	if groupPolicy.Name == "" {
		return fmt.Errorf("group policy name cannot be empty")
	}
	if !validGroupTypes[groupPolicy.GroupType] {
		return fmt.Errorf("unknown group type: %s", groupPolicy.GroupType)
	}
	if groupPolicy.GroupValue == "" {
		return fmt.Errorf("group policy group value cannot be empty")
	}
	if groupPolicy.OrganizationID == "" {
		return fmt.Errorf("group policy organization ID cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateUserPolicy(userPolicy model.UserPolicy) error {
	if userPolicy.UserID == "" {
		return fmt.Errorf("user policy user ID cannot be empty")
	}
	if userPolicy.PolicyID == "" {
		return fmt.Errorf("user policy policy ID cannot be empty")
	}
	if userPolicy.OrganizationID == "" {
		return fmt.Errorf("user policy organization ID cannot be empty")
	}
	if userPolicy.ValidFrom != nil && userPolicy.ValidUntil != nil && userPolicy.ValidUntil.Before(*userPolicy.ValidFrom) {
		return fmt.Errorf("user policy validity window ends before it starts")
	}
	return nil
}

func (v *ValidationUtil) ValidateUser(user model.User) error {
	if user.Email == "" {
		return fmt.Errorf("user email cannot be empty")
	}
	if user.Name == "" {
		return fmt.Errorf("user name cannot be empty")
	}
	return nil
}
