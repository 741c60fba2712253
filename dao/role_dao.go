// api/dao/role_dao.go
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

type RoleDAO struct {
	Driver neo4j.Driver
}

func NewRoleDAO(driver neo4j.Driver) *RoleDAO {
	dao := &RoleDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Role", zap.Error(err))
	}
	return dao
}

func (dao *RoleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Role ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_role_id IF NOT EXISTS
        FOR (r:` + aegis_neo4j.LabelRole + `) REQUIRE r.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Role ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on Role ID")
	return nil
}

// CreateRole creates a role and optionally grants it an initial set of
// policies. Granted policies must belong to the same organization.
func (dao *RoleDAO) CreateRole(ctx context.Context, role model.Role) (string, error) {
	start := time.Now()
	logger.Info("Creating new role",
		zap.String("roleName", role.Name),
		zap.String("organizationID", role.OrganizationID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if role.ID == "" {
		role.ID = uuid.New().String()
	}

	policyIDs := make([]string, 0, len(role.Policies))
	for _, p := range role.Policies {
		policyIDs = append(policyIDs, p.ID)
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $id})
        RETURN r.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": role.ID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrRoleConflict
		}

		query := `
			MERGE (r:` + aegis_neo4j.LabelRole + ` {id: $id})
			ON CREATE SET
				r.name = $name,
				r.description = $description,
				r.active = $active,
				r.organizationID = $organizationID,
				r.createdAt = $createdAt,
				r.updatedAt = $updatedAt
			WITH r
			MERGE (o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
			MERGE (r)-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
		`

		if len(policyIDs) > 0 {
			query += `
			WITH r
			UNWIND $policyIDs AS policyID
			MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
			MERGE (r)-[:` + aegis_neo4j.RelGrants + `]->(p)
			`
		}

		query += `
			RETURN r.id as id
		`

		now := time.Now().Format(time.RFC3339)
		params := map[string]interface{}{
			"id":             role.ID,
			"name":           role.Name,
			"description":    role.Description,
			"active":         role.Active,
			"organizationID": role.OrganizationID,
			"createdAt":      now,
			"updatedAt":      now,
		}

		if len(policyIDs) > 0 {
			params["policyIDs"] = policyIDs
		}

		logger.Debug("Create role query",
			zap.String("query", query),
			zap.Any("params", params))

		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute create role query", zap.Error(err))
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, aegis_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create role",
			zap.Error(err),
			zap.String("roleName", role.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	roleID := fmt.Sprintf("%v", result)
	logger.Info("Role created successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	return roleID, nil
}

// GetRole retrieves a role and its granted policies
func (dao *RoleDAO) GetRole(ctx context.Context, roleID, organizationID string) (*model.Role, error) {
	start := time.Now()
	logger.Info("Retrieving role", zap.String("roleID", roleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        OPTIONAL MATCH (r)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN r, collect(p) as policies
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             roleID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		if result.Next() {
			record := result.Record()
			node := record.Values[0].(neo4j.Node)
			role, err := mapNodeToRoleEntity(node)
			if err != nil {
				return nil, err
			}
			policies, err := collectPolicyNodes(record.Values[1])
			if err != nil {
				return nil, err
			}
			role.Policies = policies
			return role, nil
		}

		return nil, aegis_errors.ErrRoleNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.Duration("duration", duration))
		return nil, err
	}

	role := result.(*model.Role)
	logger.Info("Role retrieved successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	return role, nil
}

func (dao *RoleDAO) UpdateRole(ctx context.Context, role model.Role) (*model.Role, error) {
	start := time.Now()
	logger.Info("Updating role", zap.String("roleID", role.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        SET r.name = $name,
            r.description = $description,
            r.active = $active,
            r.updatedAt = $updatedAt
        RETURN r
        `
		params := map[string]interface{}{
			"id":             role.ID,
			"organizationID": role.OrganizationID,
			"name":           role.Name,
			"description":    role.Description,
			"active":         role.Active,
			"updatedAt":      time.Now().Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, err
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToRoleEntity(node)
		}

		return nil, aegis_errors.ErrRoleNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update role",
			zap.Error(err),
			zap.String("roleID", role.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedRole := result.(*model.Role)
	logger.Info("Role updated successfully",
		zap.String("roleID", updatedRole.ID),
		zap.Duration("duration", duration))

	return updatedRole, nil
}

// DeleteRole removes the role and every edge attached to it, including
// outstanding assignments.
func (dao *RoleDAO) DeleteRole(ctx context.Context, roleID, organizationID string) error {
	start := time.Now()
	logger.Info("Deleting role", zap.String("roleID", roleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DETACH DELETE r
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             roleID,
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
			return nil, aegis_errors.ErrRoleNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Role deleted successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	return nil
}

func (dao *RoleDAO) ListRoles(ctx context.Context, organizationID string, limit int, offset int) ([]*model.Role, error) {
	start := time.Now()
	logger.Info("Listing roles",
		zap.String("organizationID", organizationID),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        OPTIONAL MATCH (r)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN r, collect(p) as policies
        ORDER BY r.name
        SKIP $offset
        LIMIT $limit
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"organizationID": organizationID,
			"offset":         offset,
			"limit":          limit,
		})
		if err != nil {
			return nil, err
		}

		var roles []*model.Role
		for result.Next() {
			record := result.Record()
			node := record.Values[0].(neo4j.Node)
			role, err := mapNodeToRoleEntity(node)
			if err != nil {
				return nil, err
			}
			policies, err := collectPolicyNodes(record.Values[1])
			if err != nil {
				return nil, err
			}
			role.Policies = policies
			roles = append(roles, role)
		}

		return roles, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list roles",
			zap.Error(err),
			zap.String("organizationID", organizationID),
			zap.Duration("duration", duration))
		return nil, err
	}

	roles := result.([]*model.Role)
	logger.Info("Roles listed successfully",
		zap.Int("count", len(roles)),
		zap.Duration("duration", duration))

	return roles, nil
}

// GrantPolicies attaches policies to a role. Policies outside the role's
// organization are silently skipped by the tenant-anchored MATCH.
func (dao *RoleDAO) GrantPolicies(ctx context.Context, roleID, organizationID string, policyIDs []string) error {
	start := time.Now()
	logger.Info("Granting policies to role",
		zap.String("roleID", roleID),
		zap.Int("policyCount", len(policyIDs)))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $roleID})-[:` + aegis_neo4j.RelBelongsTo + `]->(o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        UNWIND $policyIDs AS policyID
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: policyID})-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
        MERGE (r)-[:` + aegis_neo4j.RelGrants + `]->(p)
        RETURN count(p) as granted
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"roleID":         roleID,
			"organizationID": organizationID,
			"policyIDs":      policyIDs,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, aegis_errors.ErrRoleNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to grant policies to role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policies granted to role successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	return nil
}

// RevokePolicy detaches a policy from a role
func (dao *RoleDAO) RevokePolicy(ctx context.Context, roleID, organizationID, policyID string) error {
	start := time.Now()
	logger.Info("Revoking policy from role",
		zap.String("roleID", roleID),
		zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $roleID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MATCH (r)-[g:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + ` {id: $policyID})
        DELETE g
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"roleID":         roleID,
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
		logger.Error("Failed to revoke policy from role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy revoked from role successfully",
		zap.String("roleID", roleID),
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	return nil
}

// AssignRole creates a HAS_ROLE relationship carrying the assignment's scope
// and validity. A user holds a given role at most once.
func (dao *RoleDAO) AssignRole(ctx context.Context, assignment model.RoleAssignment) (string, error) {
	start := time.Now()
	logger.Info("Assigning role to user",
		zap.String("userID", assignment.UserID),
		zap.String("roleID", assignment.RoleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[a:` + aegis_neo4j.RelHasRole + `]->(r:` + aegis_neo4j.LabelRole + ` {id: $roleID})
        RETURN a.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{
			"userID": assignment.UserID,
			"roleID": assignment.RoleID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrAssignmentConflict
		}

		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})
        MATCH (r:` + aegis_neo4j.LabelRole + ` {id: $roleID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MERGE (u)-[a:` + aegis_neo4j.RelHasRole + `]->(r)
        ON CREATE SET a += $props
        RETURN a.id as id
        `
		params := map[string]interface{}{
			"userID":         assignment.UserID,
			"roleID":         assignment.RoleID,
			"organizationID": assignment.OrganizationID,
			"props": map[string]interface{}{
				aegis_neo4j.AttrID:             assignment.ID,
				aegis_neo4j.AttrScope:          assignment.Scope,
				aegis_neo4j.AttrScopeID:        assignment.ScopeID,
				aegis_neo4j.AttrValidFrom:      formatNullableTime(assignment.ValidFrom),
				aegis_neo4j.AttrValidUntil:     formatNullableTime(assignment.ValidUntil),
				aegis_neo4j.AttrActive:         assignment.Active,
				aegis_neo4j.AttrAssignedBy:     assignment.AssignedBy,
				aegis_neo4j.AttrAssignedAt:     assignment.AssignedAt.Format(time.RFC3339),
				aegis_neo4j.AttrOrganizationID: assignment.OrganizationID,
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute assign role query", zap.Error(err))
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, aegis_errors.ErrRoleNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to assign role",
			zap.Error(err),
			zap.String("userID", assignment.UserID),
			zap.String("roleID", assignment.RoleID),
			zap.Duration("duration", duration))
		return "", err
	}

	assignmentID := fmt.Sprintf("%v", result)
	logger.Info("Role assigned successfully",
		zap.String("assignmentID", assignmentID),
		zap.Duration("duration", duration))

	return assignmentID, nil
}

// RevokeRole removes a user's role assignment
func (dao *RoleDAO) RevokeRole(ctx context.Context, userID, roleID, organizationID string) error {
	start := time.Now()
	logger.Info("Revoking role from user",
		zap.String("userID", userID),
		zap.String("roleID", roleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[a:` + aegis_neo4j.RelHasRole + `]->(r:` + aegis_neo4j.LabelRole + ` {id: $roleID})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DELETE a
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"userID":         userID,
			"roleID":         roleID,
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
			return nil, aegis_errors.ErrAssignmentNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to revoke role",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Role revoked successfully",
		zap.String("userID", userID),
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	return nil
}

// ListAssignmentsForUser retrieves a user's role assignments within an
// organization, with each role's granted policies attached.
func (dao *RoleDAO) ListAssignmentsForUser(ctx context.Context, userID, organizationID string) ([]*model.RoleAssignment, error) {
	start := time.Now()
	logger.Info("Listing role assignments for user",
		zap.String("userID", userID),
		zap.String("organizationID", organizationID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userID})-[a:` + aegis_neo4j.RelHasRole + `]->(r:` + aegis_neo4j.LabelRole + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        OPTIONAL MATCH (r)-[:` + aegis_neo4j.RelGrants + `]->(p:` + aegis_neo4j.LabelPolicy + `)
        RETURN a, r, collect(p) as policies
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"userID":         userID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		var assignments []*model.RoleAssignment
		for result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			assignment, err := mapRelationshipToAssignment(rel)
			if err != nil {
				return nil, err
			}
			assignment.UserID = userID

			roleNode := record.Values[1].(neo4j.Node)
			role, err := mapNodeToRoleEntity(roleNode)
			if err != nil {
				return nil, err
			}
			policies, err := collectPolicyNodes(record.Values[2])
			if err != nil {
				return nil, err
			}
			role.Policies = policies
			assignment.RoleID = role.ID
			assignment.Role = role

			assignments = append(assignments, assignment)
		}

		return assignments, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list role assignments",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		return nil, err
	}

	assignments := result.([]*model.RoleAssignment)
	logger.Info("Role assignments listed successfully",
		zap.Int("count", len(assignments)),
		zap.Duration("duration", duration))

	return assignments, nil
}

// Helper function to map Neo4j Node to Role struct
func mapNodeToRoleEntity(node neo4j.Node) (*model.Role, error) {
	props := node.Props
	role := &model.Role{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		role.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for role ID: %v", props[aegis_neo4j.AttrID])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		role.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for role name: %v", props[aegis_neo4j.AttrName])
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
		role.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		role.UpdatedAt = parseTime(updatedAt)
	}

	return role, nil
}

// Helper function to map a HAS_ROLE relationship to a RoleAssignment struct
func mapRelationshipToAssignment(rel neo4j.Relationship) (*model.RoleAssignment, error) {
	props := rel.Props
	assignment := &model.RoleAssignment{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		assignment.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for assignment ID: %v", props[aegis_neo4j.AttrID])
	}

	if scope, ok := props[aegis_neo4j.AttrScope].(string); ok {
		assignment.Scope = scope
	}

	if scopeID, ok := props[aegis_neo4j.AttrScopeID].(string); ok {
		assignment.ScopeID = scopeID
	}

	assignment.ValidFrom = parseNullableTime(props[aegis_neo4j.AttrValidFrom])
	assignment.ValidUntil = parseNullableTime(props[aegis_neo4j.AttrValidUntil])

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		assignment.Active = active
	}

	if assignedBy, ok := props[aegis_neo4j.AttrAssignedBy].(string); ok {
		assignment.AssignedBy = assignedBy
	}

	if assignedAt, ok := props[aegis_neo4j.AttrAssignedAt].(string); ok {
		assignment.AssignedAt = parseTime(assignedAt)
	}

	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		assignment.OrganizationID = organizationID
	}

	return assignment, nil
}

// collectPolicyNodes maps a collected list of policy nodes, skipping the
// nulls an unmatched OPTIONAL MATCH produces.
func collectPolicyNodes(value interface{}) ([]model.Policy, error) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, nil
	}
	var policies []model.Policy
	for _, item := range raw {
		node, ok := item.(neo4j.Node)
		if !ok {
			continue
		}
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *policy)
	}
	return policies, nil
}
