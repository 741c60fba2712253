package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	aegis_neo4j "github.com/lumenhr/aegis/api/model/neo4j"
)

type GroupPolicyDAO struct {
	Driver neo4j.Driver
}

func NewGroupPolicyDAO(driver neo4j.Driver) *GroupPolicyDAO {
	dao := &GroupPolicyDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for PolicyGroup", zap.Error(err))
	}
	return dao
}

func (dao *GroupPolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on PolicyGroup ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_group_id IF NOT EXISTS
        FOR (g:` + aegis_neo4j.LabelPolicyGroup + `) REQUIRE g.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on PolicyGroup ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on PolicyGroup ID")
	return nil
}

// CreateGroupPolicy creates an attribute-matched policy group. One group per
// (groupType, groupValue) pair within an organization.
func (dao *GroupPolicyDAO) CreateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy) (string, error) {
	start := time.Now()
	logger.Info("Creating new group policy",
		zap.String(aegis_neo4j.AttrName, groupPolicy.Name),
		zap.String(aegis_neo4j.AttrGroupType, groupPolicy.GroupType),
		zap.String(aegis_neo4j.AttrGroupValue, groupPolicy.GroupValue))

	if groupPolicy.ID == "" {
		groupPolicy.ID = uuid.New().String()
	}

	policyIDs := make([]string, 0, len(groupPolicy.Policies))
	for _, p := range groupPolicy.Policies {
		policyIDs = append(policyIDs, p.ID)
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {` + aegis_neo4j.AttrGroupType + `: $groupType, ` + aegis_neo4j.AttrGroupValue + `: $groupValue})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN g.id
        `
		checkResult, err := tx.Run(checkQuery, map[string]interface{}{
			"groupType":      groupPolicy.GroupType,
			"groupValue":     groupPolicy.GroupValue,
			"organizationID": groupPolicy.OrganizationID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrGroupPolicyConflict
		}

		query := `
        MERGE (g:` + aegis_neo4j.LabelPolicyGroup + ` {` + aegis_neo4j.AttrID + `: $id})
        ON CREATE SET g += $props
        WITH g
        MERGE (o:` + aegis_neo4j.LabelOrganization + ` {` + aegis_neo4j.AttrID + `: $organizationID})
        MERGE (g)-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
        `

		params := map[string]interface{}{
			aegis_neo4j.AttrID: groupPolicy.ID,
			"organizationID":   groupPolicy.OrganizationID,
			"props": map[string]interface{}{
				aegis_neo4j.AttrName:           groupPolicy.Name,
				aegis_neo4j.AttrDescription:    groupPolicy.Description,
				aegis_neo4j.AttrGroupType:      groupPolicy.GroupType,
				aegis_neo4j.AttrGroupValue:     groupPolicy.GroupValue,
				aegis_neo4j.AttrActive:         groupPolicy.Active,
				aegis_neo4j.AttrOrganizationID: groupPolicy.OrganizationID,
				aegis_neo4j.AttrCreatedAt:      time.Now().Format(time.RFC3339),
				aegis_neo4j.AttrUpdatedAt:      time.Now().Format(time.RFC3339),
			},
		}

		if len(policyIDs) > 0 {
			query += `
            WITH g
            UNWIND $policyIDs AS policyID
            MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
            MERGE (g)-[:` + aegis_neo4j.RelGrants + `]->(p)
            `
			params["policyIDs"] = policyIDs
		}

		query += `
        RETURN g.` + aegis_neo4j.AttrID + ` as id
        `

		result, err := tx.Run(query, params)
		if err != nil {
			return nil, fmt.Errorf("failed to execute create group policy query: %w", err)
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, aegis_errors.ErrInternalServer
	})

	if err != nil {
		logger.Error("Failed to create group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrName, groupPolicy.Name),
			zap.Duration("duration", time.Since(start)))
		return "", err
	}

	groupPolicyID := fmt.Sprintf("%v", result)
	logger.Info("Group policy created successfully",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.Duration("duration", time.Since(start)))

	return groupPolicyID, nil
}

// GetGroupPolicy retrieves a group policy and its granted policies
func (dao *GroupPolicyDAO) GetGroupPolicy(ctx context.Context, groupPolicyID, organizationID string) (*model.GroupPolicy, error) {
	start := time.Now()
	logger.Info("Retrieving group policy", zap.String(aegis_neo4j.AttrID, groupPolicyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        OPTIONAL MATCH (g)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN g, collect(p) as policies
        `
		result, err := tx.Run(query, map[string]interface{}{
			"id":             groupPolicyID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		if result.Next() {
			record := result.Record()
			node := record.Values[0].(neo4j.Node)
			groupPolicy, err := mapNodeToGroupPolicyEntity(node)
			if err != nil {
				return nil, err
			}
			policies, err := collectPolicyNodes(record.Values[1])
			if err != nil {
				return nil, err
			}
			groupPolicy.Policies = policies
			return groupPolicy, nil
		}

		return nil, aegis_errors.ErrGroupPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrID, groupPolicyID),
			zap.Duration("duration", duration))
		return nil, err
	}

	groupPolicy := result.(*model.GroupPolicy)
	logger.Info("Group policy retrieved successfully",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.Duration("duration", duration))

	return groupPolicy, nil
}

func (dao *GroupPolicyDAO) UpdateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy) (*model.GroupPolicy, error) {
	start := time.Now()
	logger.Info("Updating group policy", zap.String(aegis_neo4j.AttrID, groupPolicy.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        SET g.name = $name,
            g.description = $description,
            g.groupType = $groupType,
            g.groupValue = $groupValue,
            g.active = $active,
            g.updatedAt = $updatedAt
        RETURN g
        `
		params := map[string]interface{}{
			"id":             groupPolicy.ID,
			"organizationID": groupPolicy.OrganizationID,
			"name":           groupPolicy.Name,
			"description":    groupPolicy.Description,
			"groupType":      groupPolicy.GroupType,
			"groupValue":     groupPolicy.GroupValue,
			"active":         groupPolicy.Active,
			"updatedAt":      time.Now().Format(time.RFC3339),
		}

		result, err := tx.Run(query, params)
		if err != nil {
			return nil, err
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToGroupPolicyEntity(node)
		}

		return nil, aegis_errors.ErrGroupPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrID, groupPolicy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedGroupPolicy := result.(*model.GroupPolicy)
	logger.Info("Group policy updated successfully",
		zap.String(aegis_neo4j.AttrID, updatedGroupPolicy.ID),
		zap.Duration("duration", duration))

	return updatedGroupPolicy, nil
}

func (dao *GroupPolicyDAO) DeleteGroupPolicy(ctx context.Context, groupPolicyID, organizationID string) error {
	start := time.Now()
	logger.Info("Deleting group policy", zap.String(aegis_neo4j.AttrID, groupPolicyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DETACH DELETE g
        `
		result, err := tx.Run(query, map[string]interface{}{
			"id":             groupPolicyID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		summary, err := result.Consume()
		if err != nil {
			return nil, err
		}

		if summary.Counters().NodesDeleted() == 0 {
			return nil, aegis_errors.ErrGroupPolicyNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrID, groupPolicyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Group policy deleted successfully",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.Duration("duration", duration))

	return nil
}

func (dao *GroupPolicyDAO) ListGroupPolicies(ctx context.Context, organizationID string, limit int, offset int) ([]*model.GroupPolicy, error) {
	start := time.Now()
	logger.Info("Listing group policies",
		zap.String("organizationID", organizationID),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        OPTIONAL MATCH (g)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN g, collect(p) as policies
        ORDER BY g.groupType, g.groupValue
        SKIP $offset
        LIMIT $limit
        `
		result, err := tx.Run(query, map[string]interface{}{
			"organizationID": organizationID,
			"offset":         offset,
			"limit":          limit,
		})
		if err != nil {
			return nil, err
		}

		var groupPolicies []*model.GroupPolicy
		for result.Next() {
			record := result.Record()
			node := record.Values[0].(neo4j.Node)
			groupPolicy, err := mapNodeToGroupPolicyEntity(node)
			if err != nil {
				return nil, err
			}
			policies, err := collectPolicyNodes(record.Values[1])
			if err != nil {
				return nil, err
			}
			groupPolicy.Policies = policies
			groupPolicies = append(groupPolicies, groupPolicy)
		}

		return groupPolicies, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list group policies",
			zap.Error(err),
			zap.String("organizationID", organizationID),
			zap.Duration("duration", duration))
		return nil, err
	}

	groupPolicies := result.([]*model.GroupPolicy)
	logger.Info("Group policies listed successfully",
		zap.Int("count", len(groupPolicies)),
		zap.Duration("duration", duration))

	return groupPolicies, nil
}

// GrantPolicies attaches policies to a group policy
func (dao *GroupPolicyDAO) GrantPolicies(ctx context.Context, groupPolicyID, organizationID string, policyIDs []string) error {
	start := time.Now()
	logger.Info("Granting policies to group policy",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.Int("policyCount", len(policyIDs)))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {id: $groupPolicyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        UNWIND $policyIDs AS policyID
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
        MERGE (g)-[:` + aegis_neo4j.RelGrants + `]->(p)
        RETURN count(p) as granted
        `
		result, err := tx.Run(query, map[string]interface{}{
			"groupPolicyID":  groupPolicyID,
			"organizationID": organizationID,
			"policyIDs":      policyIDs,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, aegis_errors.ErrGroupPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to grant policies to group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrID, groupPolicyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policies granted to group policy successfully",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.Duration("duration", duration))

	return nil
}

// RevokePolicy detaches a policy from a group policy
func (dao *GroupPolicyDAO) RevokePolicy(ctx context.Context, groupPolicyID, organizationID, policyID string) error {
	start := time.Now()
	logger.Info("Revoking policy from group policy",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:` + aegis_neo4j.LabelPolicyGroup + ` {id: $groupPolicyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MATCH (g)-[rel:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + ` {id: $policyID})
        DELETE rel
        `
		result, err := tx.Run(query, map[string]interface{}{
			"groupPolicyID":  groupPolicyID,
			"organizationID": organizationID,
			"policyID":       policyID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		summary, err := result.Consume()
		if err != nil {
			return nil, err
		}

		if summary.Counters().RelationshipsDeleted() == 0 {
			return nil, aegis_errors.ErrPolicyNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to revoke policy from group policy",
			zap.Error(err),
			zap.String(aegis_neo4j.AttrID, groupPolicyID),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy revoked from group policy successfully",
		zap.String(aegis_neo4j.AttrID, groupPolicyID),
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	return nil
}

// Helper function to map Neo4j Node to GroupPolicy struct
func mapNodeToGroupPolicyEntity(node neo4j.Node) (*model.GroupPolicy, error) {
	props := node.Props
	groupPolicy := &model.GroupPolicy{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		groupPolicy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for group policy ID: %v", props[aegis_neo4j.AttrID])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		groupPolicy.Name = name
	}

	if description, ok := props[aegis_neo4j.AttrDescription].(string); ok {
		groupPolicy.Description = description
	}

	if groupType, ok := props[aegis_neo4j.AttrGroupType].(string); ok {
		groupPolicy.GroupType = groupType
	} else {
		return nil, fmt.Errorf("failed to assert type for group policy groupType: %v", props[aegis_neo4j.AttrGroupType])
	}

	if groupValue, ok := props[aegis_neo4j.AttrGroupValue].(string); ok {
		groupPolicy.GroupValue = groupValue
	} else {
		return nil, fmt.Errorf("failed to assert type for group policy groupValue: %v", props[aegis_neo4j.AttrGroupValue])
	}

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		groupPolicy.Active = active
	}

	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		groupPolicy.OrganizationID = organizationID
	}

	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		groupPolicy.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		groupPolicy.UpdatedAt = parseTime(updatedAt)
	}

	return groupPolicy, nil
}
