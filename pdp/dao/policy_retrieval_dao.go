package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	helper_util "github.com/lumenhr/aegis/api/util/helper"

	aegis_neo4j "github.com/lumenhr/aegis/api/model/neo4j"
)

// PolicyRetrievalDAO serves the read queries policy resolution runs against
// the graph. Every query is anchored on the organization node so rows from
// other tenants can never leak into an evaluation.
type PolicyRetrievalDAO struct {
	Driver neo4j.Driver
}

func NewPolicyRetrievalDAO(driver neo4j.Driver) *PolicyRetrievalDAO {
	return &PolicyRetrievalDAO{Driver: driver}
}

// ActivePolicyIDs returns the ids of every active policy owned by the
// organization.
func (dao *PolicyRetrievalDAO) ActivePolicyIDs(ctx context.Context, organizationID string) ([]string, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $orgID})
        WHERE p.active = true
        RETURN p.id
        `

		result, err := tx.Run(query, map[string]interface{}{"orgID": organizationID})
		if err != nil {
			return nil, err
		}

		var ids []string
		for result.Next() {
			record := result.Record()
			if id, ok := record.Values[0].(string); ok {
				ids = append(ids, id)
			}
		}
		return ids, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve active policy ids",
			zap.String("organizationID", organizationID),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, err
	}

	ids := result.([]string)
	logger.Debug("Retrieved active policy ids",
		zap.String("organizationID", organizationID),
		zap.Int("count", len(ids)),
		zap.Duration("duration", duration))

	return ids, nil
}

// DirectPolicies returns the user's direct policy grants inside the
// organization, each with its policy hydrated.
func (dao *PolicyRetrievalDAO) DirectPolicies(ctx context.Context, userID, organizationID string) ([]model.UserPolicy, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[g:` + aegis_neo4j.RelHasPolicy + `]->(p:` + aegis_neo4j.LabelPolicy + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $orgID})
        RETURN g, p
        `

		result, err := tx.Run(query, map[string]interface{}{
			"userID": userID,
			"orgID":  organizationID,
		})
		if err != nil {
			return nil, err
		}

		var grants []model.UserPolicy
		for result.Next() {
			record := result.Record()
			rel, ok := record.Values[0].(neo4j.Relationship)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for policy grant: %v", record.Values[0])
			}
			policyNode, ok := record.Values[1].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for granted policy: %v", record.Values[1])
			}

			policy, err := mapNodeToPolicy(policyNode)
			if err != nil {
				return nil, err
			}
			grant, err := mapRelationshipToUserPolicy(rel, userID, organizationID)
			if err != nil {
				return nil, err
			}
			grant.PolicyID = policy.ID
			grant.Policy = policy
			grants = append(grants, grant)
		}
		return grants, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve direct policies",
			zap.String("userID", userID),
			zap.String("organizationID", organizationID),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, err
	}

	grants := result.([]model.UserPolicy)
	logger.Debug("Retrieved direct policies",
		zap.String("userID", userID),
		zap.Int("count", len(grants)),
		zap.Duration("duration", duration))

	return grants, nil
}

// GroupPolicies returns the organization's active policy groups with their
// granted policies hydrated.
func (dao *PolicyRetrievalDAO) GroupPolicies(ctx context.Context, organizationID string) ([]model.GroupPolicy, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (gp:` + aegis_neo4j.LabelPolicyGroup + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $orgID})
        WHERE gp.active = true
        OPTIONAL MATCH (gp)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN gp, collect(p) AS policies
        `

		result, err := tx.Run(query, map[string]interface{}{"orgID": organizationID})
		if err != nil {
			return nil, err
		}

		var groups []model.GroupPolicy
		for result.Next() {
			record := result.Record()
			groupNode, ok := record.Values[0].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for policy group: %v", record.Values[0])
			}

			group, err := mapNodeToGroupPolicy(groupNode)
			if err != nil {
				return nil, err
			}
			group.Policies, err = collectPolicies(record.Values[1])
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
		return groups, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve group policies",
			zap.String("organizationID", organizationID),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, err
	}

	groups := result.([]model.GroupPolicy)
	logger.Debug("Retrieved group policies",
		zap.String("organizationID", organizationID),
		zap.Int("count", len(groups)),
		zap.Duration("duration", duration))

	return groups, nil
}

// RoleAssignments returns the user's role assignments inside the
// organization, each with its role and granted policies hydrated.
func (dao *PolicyRetrievalDAO) RoleAssignments(ctx context.Context, userID, organizationID string) ([]model.RoleAssignment, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[a:` + aegis_neo4j.RelHasRole + `]->(r:` + aegis_neo4j.LabelRole + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $orgID})
        OPTIONAL MATCH (r)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN a, r, collect(p) AS policies
        `

		result, err := tx.Run(query, map[string]interface{}{
			"userID": userID,
			"orgID":  organizationID,
		})
		if err != nil {
			return nil, err
		}

		var assignments []model.RoleAssignment
		for result.Next() {
			record := result.Record()
			rel, ok := record.Values[0].(neo4j.Relationship)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for role assignment: %v", record.Values[0])
			}
			roleNode, ok := record.Values[1].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for role: %v", record.Values[1])
			}

			role, err := mapNodeToRole(roleNode)
			if err != nil {
				return nil, err
			}
			role.Policies, err = collectPolicies(record.Values[2])
			if err != nil {
				return nil, err
			}

			assignment, err := mapRelationshipToRoleAssignment(rel, userID, organizationID)
			if err != nil {
				return nil, err
			}
			assignment.RoleID = role.ID
			assignment.Role = role
			assignments = append(assignments, assignment)
		}
		return assignments, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve role assignments",
			zap.String("userID", userID),
			zap.String("organizationID", organizationID),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, err
	}

	assignments := result.([]model.RoleAssignment)
	logger.Debug("Retrieved role assignments",
		zap.String("userID", userID),
		zap.Int("count", len(assignments)),
		zap.Duration("duration", duration))

	return assignments, nil
}

func collectPolicies(value interface{}) ([]model.Policy, error) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy collection: %v", value)
	}
	policies := make([]model.Policy, 0, len(raw))
	for _, item := range raw {
		node, ok := item.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("failed to assert type for collected policy: %v", item)
		}
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *policy)
	}
	return policies, nil
}

// Helper function to map Neo4j Node to Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	// ID
	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		policy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props[aegis_neo4j.AttrID])
	}

	// Name
	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		policy.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props[aegis_neo4j.AttrName])
	}

	// Description
	if description, ok := props[aegis_neo4j.AttrDescription].(string); ok {
		policy.Description = description
	}

	// Effect
	if effect, ok := props[aegis_neo4j.AttrEffect].(string); ok {
		if effect == aegis_neo4j.PolicyEffectAllow || effect == aegis_neo4j.PolicyEffectDeny {
			policy.Effect = effect
		} else {
			return nil, fmt.Errorf("invalid policy effect: %v", effect)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props[aegis_neo4j.AttrEffect])
	}

	// Priority
	if priority, ok := props[aegis_neo4j.AttrPriority].(int64); ok {
		policy.Priority = int(priority)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy priority: %v", props[aegis_neo4j.AttrPriority])
	}

	// ResourceType
	if resourceType, ok := props[aegis_neo4j.AttrResourceType].(string); ok {
		policy.ResourceType = resourceType
	}

	// ResourceID
	if resourceID, ok := props[aegis_neo4j.AttrResourceID].(string); ok {
		policy.ResourceID = resourceID
	}

	// Actions
	if actionsJSON, ok := props[aegis_neo4j.AttrActions].(string); ok && actionsJSON != "" {
		if err := json.Unmarshal([]byte(actionsJSON), &policy.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy actions: %w", err)
		}
	}

	// CombineLogic
	if combineLogic, ok := props[aegis_neo4j.AttrCombineLogic].(string); ok {
		policy.CombineLogic = combineLogic
	} else {
		policy.CombineLogic = model.CombineAND
	}

	// Rules
	if rulesJSON, ok := props[aegis_neo4j.AttrRules].(string); ok && rulesJSON != "" {
		if err := json.Unmarshal([]byte(rulesJSON), &policy.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy rules: %w", err)
		}
	}

	// ValidFrom / ValidUntil
	policy.ValidFrom, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidFrom])
	policy.ValidUntil, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidUntil])

	// Active
	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		policy.Active = active
	} else {
		return nil, fmt.Errorf("failed to assert type for policy active: %v", props[aegis_neo4j.AttrActive])
	}

	// OrganizationID
	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		policy.OrganizationID = organizationID
	}

	// CreatedAt / UpdatedAt
	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		policy.CreatedAt, _ = helper_util.ParseTime(createdAt)
	}
	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		policy.UpdatedAt, _ = helper_util.ParseTime(updatedAt)
	}

	return policy, nil
}

func mapRelationshipToUserPolicy(rel neo4j.Relationship, userID, organizationID string) (model.UserPolicy, error) {
	props := rel.Props
	grant := model.UserPolicy{
		UserID:         userID,
		OrganizationID: organizationID,
	}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		grant.ID = id
	} else {
		return grant, fmt.Errorf("failed to assert type for policy grant ID: %v", props[aegis_neo4j.AttrID])
	}

	if override, ok := props[aegis_neo4j.AttrPriorityOverride].(int64); ok {
		value := int(override)
		grant.PriorityOverride = &value
	}

	grant.ValidFrom, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidFrom])
	grant.ValidUntil, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidUntil])

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		grant.Active = active
	}

	if assignedBy, ok := props[aegis_neo4j.AttrAssignedBy].(string); ok {
		grant.AssignedBy = assignedBy
	}
	if assignedAt, ok := props[aegis_neo4j.AttrAssignedAt].(string); ok {
		grant.AssignedAt, _ = helper_util.ParseTime(assignedAt)
	}

	return grant, nil
}

func mapNodeToGroupPolicy(node neo4j.Node) (model.GroupPolicy, error) {
	props := node.Props
	group := model.GroupPolicy{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		group.ID = id
	} else {
		return group, fmt.Errorf("failed to assert type for policy group ID: %v", props[aegis_neo4j.AttrID])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		group.Name = name
	}
	if description, ok := props[aegis_neo4j.AttrDescription].(string); ok {
		group.Description = description
	}

	if groupType, ok := props[aegis_neo4j.AttrGroupType].(string); ok {
		group.GroupType = groupType
	} else {
		return group, fmt.Errorf("failed to assert type for policy group type: %v", props[aegis_neo4j.AttrGroupType])
	}

	if groupValue, ok := props[aegis_neo4j.AttrGroupValue].(string); ok {
		group.GroupValue = groupValue
	} else {
		return group, fmt.Errorf("failed to assert type for policy group value: %v", props[aegis_neo4j.AttrGroupValue])
	}

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		group.Active = active
	}
	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		group.OrganizationID = organizationID
	}
	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		group.CreatedAt, _ = helper_util.ParseTime(createdAt)
	}
	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		group.UpdatedAt, _ = helper_util.ParseTime(updatedAt)
	}

	return group, nil
}

func mapNodeToRole(node neo4j.Node) (*model.Role, error) {
	props := node.Props
	role := &model.Role{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		role.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for role ID: %v", props[aegis_neo4j.AttrID])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		role.Name = name
	}
	if description, ok := props[aegis_neo4j.AttrDescription].(string); ok {
		role.Description = description
	}
	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		role.Active = active
	}
	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		role.OrganizationID = organizationID
	}
	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		role.CreatedAt, _ = helper_util.ParseTime(createdAt)
	}
	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		role.UpdatedAt, _ = helper_util.ParseTime(updatedAt)
	}

	return role, nil
}

func mapRelationshipToRoleAssignment(rel neo4j.Relationship, userID, organizationID string) (model.RoleAssignment, error) {
	props := rel.Props
	assignment := model.RoleAssignment{
		UserID:         userID,
		OrganizationID: organizationID,
	}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		assignment.ID = id
	} else {
		return assignment, fmt.Errorf("failed to assert type for role assignment ID: %v", props[aegis_neo4j.AttrID])
	}

	if scope, ok := props[aegis_neo4j.AttrScope].(string); ok {
		assignment.Scope = scope
	}
	if scopeID, ok := props[aegis_neo4j.AttrScopeID].(string); ok {
		assignment.ScopeID = scopeID
	}

	assignment.ValidFrom, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidFrom])
	assignment.ValidUntil, _ = helper_util.ParseNullableTime(props[aegis_neo4j.AttrValidUntil])

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		assignment.Active = active
	}
	if assignedBy, ok := props[aegis_neo4j.AttrAssignedBy].(string); ok {
		assignment.AssignedBy = assignedBy
	}
	if assignedAt, ok := props[aegis_neo4j.AttrAssignedAt].(string); ok {
		assignment.AssignedAt, _ = helper_util.ParseTime(assignedAt)
	}

	return assignment, nil
}
