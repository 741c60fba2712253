// api/dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	aegis_neo4j "github.com/lumenhr/aegis/api/model/neo4j"
)

type PolicyDAO struct {
	Driver neo4j.Driver
}

func NewPolicyDAO(driver neo4j.Driver) *PolicyDAO {
	dao := &PolicyDAO{Driver: driver}
	// Ensure unique constraint on Policy ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Policy ID
func (dao *PolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Policy ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_id IF NOT EXISTS
        FOR (p:` + aegis_neo4j.LabelPolicy + `) REQUIRE p.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			logger.Error("Failed to create unique constraint", zap.Error(err))
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Policy ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on Policy ID")
	return nil
}

// CreatePolicy creates a new policy node and attaches it to its organization
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy) (string, error) {
	start := time.Now()
	logger.Info("Creating new policy",
		zap.String("policyName", policy.Name),
		zap.String("organizationID", policy.OrganizationID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if policy.ID == "" {
		policy.ID = uuid.New().String() // Generate a new UUID if ID is not provided
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// First, check if the policy already exists
		checkQuery := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
        RETURN p.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": policy.ID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrPolicyConflict
		}

		createQuery := `
            MERGE (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
            ON CREATE SET p += $props
            WITH p
            MERGE (o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
            MERGE (p)-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
            RETURN p.id as id
        `

		parameters := map[string]interface{}{
			"id":             policy.ID,
			"organizationID": policy.OrganizationID,
			"props":          policyProps(&policy, time.Now()),
		}
		createResult, err := transaction.Run(createQuery, parameters)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			id, found := createResult.Record().Get("id")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return id, nil
		}
		return nil, aegis_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	policyID := fmt.Sprintf("%v", result)
	logger.Info("Policy created successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	return policyID, nil
}

// UpdatePolicy replaces the mutable fields of an existing policy
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	var updatedPolicy *model.Policy
	oldPolicy, err := dao.GetPolicy(ctx, policy.ID, policy.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        SET p += $props
        RETURN p
        `

		props := policyProps(&policy, time.Now())
		props[aegis_neo4j.AttrCreatedAt] = oldPolicy.CreatedAt.Format(time.RFC3339)

		parameters := map[string]interface{}{
			"id":             policy.ID,
			"organizationID": policy.OrganizationID,
			"props":          props,
		}
		result, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updatedPolicy, err = mapNodeToPolicy(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
			}
			return nil, nil
		}
		return nil, aegis_errors.ErrPolicyNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	return updatedPolicy, nil
}

// DeactivatePolicy soft-deletes a policy. Policies stay on the graph so the
// decision history keeps resolving their names.
func (dao *PolicyDAO) DeactivatePolicy(ctx context.Context, policyID, organizationID string) error {
	start := time.Now()
	logger.Info("Deactivating policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        SET p.active = false, p.updatedAt = $updatedAt
        RETURN p.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             policyID,
			"organizationID": organizationID,
			"updatedAt":      time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to deactivate policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy deactivated successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))
	return nil
}

// DeletePolicy removes a policy node outright. Reserved for drafts that never
// reached evaluation; deactivation is the normal retirement path.
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID, organizationID string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DETACH DELETE p
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             policyID,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	return nil
}

// GetPolicy retrieves a policy by id within its organization
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID, organizationID string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Retrieving policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
    RETURN p
    `
	result, err := session.Run(query, map[string]interface{}{
		"id":             policyID,
		"organizationID": organizationID,
	})
	if err != nil {
		logger.Error("Failed to execute get policy query",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get policy query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.String("policyID", policyID),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		logger.Info("Policy retrieved successfully",
			zap.String("policyID", policyID),
			zap.Duration("duration", time.Since(start)))
		return policy, nil
	}

	logger.Warn("Policy not found",
		zap.String("policyID", policyID),
		zap.Duration("duration", time.Since(start)))
	return nil, aegis_errors.ErrPolicyNotFound
}

// ListPolicies retrieves an organization's policies with pagination
func (dao *PolicyDAO) ListPolicies(ctx context.Context, organizationID string, limit int, offset int) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Listing policies",
		zap.String("organizationID", organizationID),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:` + aegis_neo4j.LabelPolicy + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
    RETURN p
    ORDER BY p.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"organizationID": organizationID,
		"limit":          limit,
		"offset":         offset,
	})
	if err != nil {
		logger.Error("Failed to execute list policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute list policies query: %w", err)
	}

	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}

	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// SearchPolicies searches an organization's policies by criteria
func (dao *PolicyDAO) SearchPolicies(ctx context.Context, organizationID string, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Searching policies",
		zap.String("organizationID", organizationID),
		zap.Any("criteria", criteria))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`MATCH (p:` + aegis_neo4j.LabelPolicy + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID}) WHERE 1=1`)

	params := map[string]interface{}{
		"organizationID": organizationID,
	}

	if criteria.Name != "" {
		queryBuilder.WriteString(" AND p.name CONTAINS $name")
		params["name"] = criteria.Name
	}

	if criteria.Effect != "" {
		queryBuilder.WriteString(" AND p.effect = $effect")
		params["effect"] = criteria.Effect
	}

	if criteria.ResourceType != "" {
		queryBuilder.WriteString(" AND (p.resourceType = $resourceType OR p.resourceType = '')")
		params["resourceType"] = criteria.ResourceType
	}

	if criteria.MinPriority > 0 {
		queryBuilder.WriteString(" AND p.priority >= $minPriority")
		params["minPriority"] = criteria.MinPriority
	}

	if criteria.MaxPriority > 0 {
		queryBuilder.WriteString(" AND p.priority <= $maxPriority")
		params["maxPriority"] = criteria.MaxPriority
	}

	if criteria.Active != nil {
		queryBuilder.WriteString(" AND p.active = $active")
		params["active"] = *criteria.Active
	}

	queryBuilder.WriteString(" RETURN p ORDER BY p.priority DESC, p.createdAt DESC")

	if criteria.Offset > 0 {
		queryBuilder.WriteString(" SKIP $offset")
		params["offset"] = criteria.Offset
	}
	if criteria.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $limit")
		params["limit"] = criteria.Limit
	}

	result, err := session.Run(queryBuilder.String(), params)
	if err != nil {
		logger.Error("Failed to execute search policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute search policies query: %w", err)
	}

	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			logger.Error("Failed to map policy node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}

	logger.Info("Policies searched successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// policyProps renders a policy's node property map. Action lists and rules
// persist as JSON strings on the node.
func policyProps(policy *model.Policy, now time.Time) map[string]interface{} {
	actionsJSON, _ := json.Marshal(policy.Actions)
	rulesJSON, _ := json.Marshal(policy.Rules)

	return map[string]interface{}{
		aegis_neo4j.AttrName:           policy.Name,
		aegis_neo4j.AttrDescription:    policy.Description,
		aegis_neo4j.AttrEffect:         policy.Effect,
		aegis_neo4j.AttrPriority:       policy.Priority,
		aegis_neo4j.AttrResourceType:   policy.ResourceType,
		aegis_neo4j.AttrResourceID:     policy.ResourceID,
		aegis_neo4j.AttrActions:        string(actionsJSON),
		aegis_neo4j.AttrCombineLogic:   policy.CombineLogic,
		aegis_neo4j.AttrRules:          string(rulesJSON),
		aegis_neo4j.AttrValidFrom:      formatNullableTime(policy.ValidFrom),
		aegis_neo4j.AttrValidUntil:     formatNullableTime(policy.ValidUntil),
		aegis_neo4j.AttrActive:         policy.Active,
		aegis_neo4j.AttrOrganizationID: policy.OrganizationID,
		aegis_neo4j.AttrCreatedAt:      now.Format(time.RFC3339),
		aegis_neo4j.AttrUpdatedAt:      now.Format(time.RFC3339),
	}
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
		policy.Effect = effect
	} else {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props[aegis_neo4j.AttrEffect])
	}

	// Priority
	if priority, ok := props[aegis_neo4j.AttrPriority].(int64); ok {
		policy.Priority = int(priority)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy priority: %v", props[aegis_neo4j.AttrPriority])
	}

	// ResourceType / ResourceID
	if resourceType, ok := props[aegis_neo4j.AttrResourceType].(string); ok {
		policy.ResourceType = resourceType
	}
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
	if combineLogic, ok := props[aegis_neo4j.AttrCombineLogic].(string); ok && combineLogic != "" {
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

	// Validity window
	policy.ValidFrom = parseNullableTime(props[aegis_neo4j.AttrValidFrom])
	policy.ValidUntil = parseNullableTime(props[aegis_neo4j.AttrValidUntil])

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

	// CreatedAt
	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		policy.CreatedAt = parseTime(createdAt)
	}

	// UpdatedAt
	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		policy.UpdatedAt = parseTime(updatedAt)
	}

	return policy, nil
}

// Helper function to parse time
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// Helper function to parse nullable time
func parseNullableTime(v interface{}) *time.Time {
	if s, ok := v.(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		return &t
	}
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

// Helper function to format nullable time
func formatNullableTime(t *time.Time) interface{} {
	if t != nil {
		return t.Format(time.RFC3339)
	}
	return ""
}
