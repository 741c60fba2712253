// api/dao/user_policy_dao.go
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

type UserPolicyDAO struct {
	Driver neo4j.Driver
}

func NewUserPolicyDAO(driver neo4j.Driver) *UserPolicyDAO {
	return &UserPolicyDAO{Driver: driver}
}

// AssignPolicy grants a policy directly to a user. A user holds at most one
// grant per policy; assigning twice is a conflict, not an update.
func (dao *UserPolicyDAO) AssignPolicy(ctx context.Context, userPolicy model.UserPolicy) (string, error) {
	start := time.Now()
	logger.Info("Assigning policy to user",
		zap.String("userID", userPolicy.UserID),
		zap.String("policyID", userPolicy.PolicyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if userPolicy.ID == "" {
		userPolicy.ID = uuid.New().String()
	}
	if userPolicy.AssignedAt.IsZero() {
		userPolicy.AssignedAt = time.Now()
	}

	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[g:` + aegis_neo4j.RelHasPolicy + `]->(p:` + aegis_neo4j.LabelPolicy + ` {id: $policyID})
        RETURN g.id
        `
		checkResult, err := tx.Run(checkQuery, map[string]interface{}{
			"userID":   userPolicy.UserID,
			"policyID": userPolicy.PolicyID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrUserPolicyConflict
		}

		props := map[string]interface{}{
			aegis_neo4j.AttrID:             userPolicy.ID,
			aegis_neo4j.AttrValidFrom:      formatNullableTime(userPolicy.ValidFrom),
			aegis_neo4j.AttrValidUntil:     formatNullableTime(userPolicy.ValidUntil),
			aegis_neo4j.AttrActive:         userPolicy.Active,
			aegis_neo4j.AttrAssignedBy:     userPolicy.AssignedBy,
			aegis_neo4j.AttrAssignedAt:     userPolicy.AssignedAt.Format(time.RFC3339),
			aegis_neo4j.AttrOrganizationID: userPolicy.OrganizationID,
		}
		if userPolicy.PriorityOverride != nil {
			props[aegis_neo4j.AttrPriorityOverride] = *userPolicy.PriorityOverride
		}

		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MERGE (u)-[g:` + aegis_neo4j.RelHasPolicy + `]->(p)
        ON CREATE SET g += $props
        RETURN g.id as id
        `
		params := map[string]interface{}{
			"userID":         userPolicy.UserID,
			"policyID":       userPolicy.PolicyID,
			"organizationID": userPolicy.OrganizationID,
			"props":          props,
		}

		result, err := tx.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute assign policy query", zap.Error(err))
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, aegis_errors.ErrPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to assign policy",
			zap.Error(err),
			zap.String("userID", userPolicy.UserID),
			zap.String("policyID", userPolicy.PolicyID),
			zap.Duration("duration", duration))
		return "", err
	}

	grantID := fmt.Sprintf("%v", result)
	logger.Info("Policy assigned successfully",
		zap.String("grantID", grantID),
		zap.Duration("duration", duration))

	return grantID, nil
}

// UpdateAssignment rewrites the mutable properties on an existing grant
func (dao *UserPolicyDAO) UpdateAssignment(ctx context.Context, userPolicy model.UserPolicy) (*model.UserPolicy, error) {
	start := time.Now()
	logger.Info("Updating user policy grant", zap.String("grantID", userPolicy.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		props := map[string]interface{}{
			aegis_neo4j.AttrValidFrom:  formatNullableTime(userPolicy.ValidFrom),
			aegis_neo4j.AttrValidUntil: formatNullableTime(userPolicy.ValidUntil),
			aegis_neo4j.AttrActive:     userPolicy.Active,
		}
		if userPolicy.PriorityOverride != nil {
			props[aegis_neo4j.AttrPriorityOverride] = *userPolicy.PriorityOverride
		}

		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + `)-[g:` + aegis_neo4j.RelHasPolicy + ` {id: $id, organizationID: $organizationID}]->(p:` + aegis_neo4j.LabelPolicy + `)
        SET g += $props
        RETURN g, u.id as userID, p.id as policyID
        `
		result, err := tx.Run(query, map[string]interface{}{
			"id":             userPolicy.ID,
			"organizationID": userPolicy.OrganizationID,
			"props":          props,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			updated, err := mapRelationshipToUserPolicyGrant(rel)
			if err != nil {
				return nil, err
			}
			if userID, ok := record.Values[1].(string); ok {
				updated.UserID = userID
			}
			if policyID, ok := record.Values[2].(string); ok {
				updated.PolicyID = policyID
			}
			return updated, nil
		}

		return nil, aegis_errors.ErrUserPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update user policy grant",
			zap.Error(err),
			zap.String("grantID", userPolicy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updated := result.(*model.UserPolicy)
	logger.Info("User policy grant updated successfully",
		zap.String("grantID", updated.ID),
		zap.Duration("duration", duration))

	return updated, nil
}

// RevokePolicy removes a user's direct policy grant
func (dao *UserPolicyDAO) RevokePolicy(ctx context.Context, userID, policyID, organizationID string) error {
	start := time.Now()
	logger.Info("Revoking policy from user",
		zap.String("userID", userID),
		zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[g:` + aegis_neo4j.RelHasPolicy + `]->(p:` + aegis_neo4j.LabelPolicy + ` {id: $policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DELETE g
        `
		result, err := tx.Run(query, map[string]interface{}{
			"userID":         userID,
			"policyID":       policyID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		summary, err := result.Consume()
		if err != nil {
			return nil, err
		}

		if summary.Counters().RelationshipsDeleted() == 0 {
			return nil, aegis_errors.ErrUserPolicyNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to revoke policy",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy revoked successfully",
		zap.String("userID", userID),
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	return nil
}

// ListUserPolicies retrieves a user's direct policy grants within an
// organization, with each granted policy attached.
func (dao *UserPolicyDAO) ListUserPolicies(ctx context.Context, userID, organizationID string) ([]*model.UserPolicy, error) {
	start := time.Now()
	logger.Info("Listing user policies",
		zap.String("userID", userID),
		zap.String("organizationID", organizationID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[g:` + aegis_neo4j.RelHasPolicy + `]->(p:` + aegis_neo4j.LabelPolicy + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN g, p
        ORDER BY g.assignedAt DESC
        `
		result, err := tx.Run(query, map[string]interface{}{
			"userID":         userID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		var userPolicies []*model.UserPolicy
		for result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			userPolicy, err := mapRelationshipToUserPolicyGrant(rel)
			if err != nil {
				return nil, err
			}
			userPolicy.UserID = userID

			policyNode := record.Values[1].(neo4j.Node)
			policy, err := mapNodeToPolicy(policyNode)
			if err != nil {
				return nil, err
			}
			userPolicy.PolicyID = policy.ID
			userPolicy.Policy = policy

			userPolicies = append(userPolicies, userPolicy)
		}

		return userPolicies, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list user policies",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		return nil, err
	}

	userPolicies := result.([]*model.UserPolicy)
	logger.Info("User policies listed successfully",
		zap.Int("count", len(userPolicies)),
		zap.Duration("duration", duration))

	return userPolicies, nil
}

// Helper function to map a HAS_POLICY relationship to a UserPolicy struct
func mapRelationshipToUserPolicyGrant(rel neo4j.Relationship) (*model.UserPolicy, error) {
	props := rel.Props
	userPolicy := &model.UserPolicy{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		userPolicy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for user policy ID: %v", props[aegis_neo4j.AttrID])
	}

	if priorityOverride, ok := props[aegis_neo4j.AttrPriorityOverride].(int64); ok {
		override := int(priorityOverride)
		userPolicy.PriorityOverride = &override
	}

	userPolicy.ValidFrom = parseNullableTime(props[aegis_neo4j.AttrValidFrom])
	userPolicy.ValidUntil = parseNullableTime(props[aegis_neo4j.AttrValidUntil])

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		userPolicy.Active = active
	}

	if assignedBy, ok := props[aegis_neo4j.AttrAssignedBy].(string); ok {
		userPolicy.AssignedBy = assignedBy
	}

	if assignedAt, ok := props[aegis_neo4j.AttrAssignedAt].(string); ok {
		userPolicy.AssignedAt = parseTime(assignedAt)
	}

	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		userPolicy.OrganizationID = organizationID
	}

	return userPolicy, nil
}
