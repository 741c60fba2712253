// api/dao/attribute_type_dao.go

package dao

import (
	"context"
	"encoding/json"
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

type AttributeTypeDAO struct {
	Driver neo4j.Driver
}

func NewAttributeTypeDAO(driver neo4j.Driver) *AttributeTypeDAO {
	dao := &AttributeTypeDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for AttributeType", zap.Error(err))
	}
	return dao
}

func (dao *AttributeTypeDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on AttributeType ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		CREATE CONSTRAINT unique_attribute_type_id IF NOT EXISTS
		FOR (at:` + aegis_neo4j.LabelAttributeType + `) REQUIRE at.id IS UNIQUE
		`
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on AttributeType ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on AttributeType ID")
	return nil
}

// CreateAttributeType registers an attribute type. The (organization, code)
// pair must be unique: rules reference attribute types by code within their
// tenant.
func (dao *AttributeTypeDAO) CreateAttributeType(ctx context.Context, attributeType model.AttributeType) (string, error) {
	start := time.Now()
	logger.Info("Creating new attribute type",
		zap.String("code", attributeType.Code),
		zap.String("organizationID", attributeType.OrganizationID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if attributeType.ID == "" {
		attributeType.ID = uuid.New().String()
	}

	attributeType.CreatedAt = time.Now()
	attributeType.UpdatedAt = time.Now()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// Code must be unique within the organization
		checkQuery := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + ` {code: $code})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN at.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{
			"code":           attributeType.Code,
			"organizationID": attributeType.OrganizationID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrAttributeTypeConflict
		}

		allowedValuesJSON, err := json.Marshal(attributeType.AllowedValues)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal allowed values: %w", err)
		}

		query := `
        CREATE (at:` + aegis_neo4j.LabelAttributeType + ` {
            id: $id,
            code: $code,
            name: $name,
            description: $description,
            category: $category,
            dataType: $dataType,
            allowedValues: $allowedValues,
            organizationID: $organizationID,
            active: $active,
            createdAt: $createdAt,
            updatedAt: $updatedAt
        })
        WITH at
        MERGE (o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MERGE (at)-[:` + aegis_neo4j.RelBelongsTo + `]->(o)
        RETURN at.id as id
        `

		params := map[string]interface{}{
			"id":             attributeType.ID,
			"code":           attributeType.Code,
			"name":           attributeType.Name,
			"description":    attributeType.Description,
			"category":       attributeType.Category,
			"dataType":       attributeType.DataType,
			"allowedValues":  string(allowedValuesJSON),
			"organizationID": attributeType.OrganizationID,
			"active":         attributeType.Active,
			"createdAt":      attributeType.CreatedAt.Format(time.RFC3339),
			"updatedAt":      attributeType.UpdatedAt.Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, err
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, fmt.Errorf("no ID returned")
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create attribute type",
			zap.Error(err),
			zap.String("code", attributeType.Code),
			zap.Duration("duration", duration))
		return "", err
	}

	attributeTypeID := fmt.Sprintf("%v", result)
	logger.Info("Attribute type created successfully",
		zap.String("attributeTypeID", attributeTypeID),
		zap.Duration("duration", duration))

	return attributeTypeID, nil
}

func (dao *AttributeTypeDAO) GetAttributeType(ctx context.Context, id, organizationID string) (*model.AttributeType, error) {
	start := time.Now()
	logger.Info("Retrieving attribute type", zap.String("id", id))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN at
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             id,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToAttributeType(node)
		}

		return nil, aegis_errors.ErrAttributeTypeNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve attribute type",
			zap.Error(err),
			zap.String("id", id),
			zap.Duration("duration", duration))
		return nil, err
	}

	attributeType := result.(*model.AttributeType)
	logger.Info("Attribute type retrieved successfully",
		zap.String("id", id),
		zap.Duration("duration", duration))

	return attributeType, nil
}

// GetAttributeTypeByCode resolves an attribute type by its tenant-scoped code.
func (dao *AttributeTypeDAO) GetAttributeTypeByCode(ctx context.Context, code, organizationID string) (*model.AttributeType, error) {
	start := time.Now()
	logger.Info("Retrieving attribute type by code",
		zap.String("code", code),
		zap.String("organizationID", organizationID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + ` {code: $code})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN at
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"code":           code,
			"organizationID": organizationID,
		})
		if err != nil {
			return nil, err
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToAttributeType(node)
		}

		return nil, aegis_errors.ErrAttributeTypeNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve attribute type by code",
			zap.Error(err),
			zap.String("code", code),
			zap.Duration("duration", duration))
		return nil, err
	}

	attributeType := result.(*model.AttributeType)
	logger.Info("Attribute type retrieved successfully",
		zap.String("code", code),
		zap.Duration("duration", duration))

	return attributeType, nil
}

func (dao *AttributeTypeDAO) UpdateAttributeType(ctx context.Context, attributeType model.AttributeType) (*model.AttributeType, error) {
	start := time.Now()
	logger.Info("Updating attribute type", zap.String("id", attributeType.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	attributeType.UpdatedAt = time.Now()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		allowedValuesJSON, err := json.Marshal(attributeType.AllowedValues)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal allowed values: %w", err)
		}

		query := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        SET at.name = $name,
            at.description = $description,
            at.category = $category,
            at.dataType = $dataType,
            at.allowedValues = $allowedValues,
            at.active = $active,
            at.updatedAt = $updatedAt
        RETURN at
        `

		params := map[string]interface{}{
			"id":             attributeType.ID,
			"organizationID": attributeType.OrganizationID,
			"name":           attributeType.Name,
			"description":    attributeType.Description,
			"category":       attributeType.Category,
			"dataType":       attributeType.DataType,
			"allowedValues":  string(allowedValuesJSON),
			"active":         attributeType.Active,
			"updatedAt":      attributeType.UpdatedAt.Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, err
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToAttributeType(node)
		}

		return nil, aegis_errors.ErrAttributeTypeNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update attribute type",
			zap.Error(err),
			zap.String("id", attributeType.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedAttributeType := result.(*model.AttributeType)
	logger.Info("Attribute type updated successfully",
		zap.String("id", updatedAttributeType.ID),
		zap.Duration("duration", duration))

	return updatedAttributeType, nil
}

func (dao *AttributeTypeDAO) ListAttributeTypes(ctx context.Context, organizationID string, limit int, offset int) ([]*model.AttributeType, error) {
	start := time.Now()
	logger.Info("Listing attribute types",
		zap.String("organizationID", organizationID),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + `)-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN at
        ORDER BY at.code
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

		var attributeTypes []*model.AttributeType
		for result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			attributeType, err := mapNodeToAttributeType(node)
			if err != nil {
				return nil, err
			}
			attributeTypes = append(attributeTypes, attributeType)
		}

		return attributeTypes, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list attribute types",
			zap.Error(err),
			zap.String("organizationID", organizationID),
			zap.Duration("duration", duration))
		return nil, err
	}

	attributeTypes := result.([]*model.AttributeType)
	logger.Info("Attribute types listed successfully",
		zap.Int("count", len(attributeTypes)),
		zap.Duration("duration", duration))

	return attributeTypes, nil
}

// DeleteAttributeType removes the attribute type node. Policies referencing
// its code are not touched here; the service layer deactivates dependent
// rules first.
func (dao *AttributeTypeDAO) DeleteAttributeType(ctx context.Context, id, organizationID string) error {
	start := time.Now()
	logger.Info("Deleting attribute type", zap.String("id", id))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (at:` + aegis_neo4j.LabelAttributeType + ` {id: $id})-[:` + aegis_neo4j.RelBelongsTo + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        DETACH DELETE at
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":             id,
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
			return nil, aegis_errors.ErrAttributeTypeNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete attribute type",
			zap.Error(err),
			zap.String("id", id),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Attribute type deleted successfully",
		zap.String("id", id),
		zap.Duration("duration", duration))

	return nil
}

// Helper function to map Neo4j Node to AttributeType struct
func mapNodeToAttributeType(node neo4j.Node) (*model.AttributeType, error) {
	props := node.Props
	attributeType := &model.AttributeType{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		attributeType.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for attribute type ID: %v", props[aegis_neo4j.AttrID])
	}

	if code, ok := props[aegis_neo4j.AttrCode].(string); ok {
		attributeType.Code = code
	} else {
		return nil, fmt.Errorf("failed to assert type for attribute type code: %v", props[aegis_neo4j.AttrCode])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		attributeType.Name = name
	}

	if description, ok := props[aegis_neo4j.AttrDescription].(string); ok {
		attributeType.Description = description
	}

	if category, ok := props[aegis_neo4j.AttrCategory].(string); ok {
		attributeType.Category = category
	} else {
		return nil, fmt.Errorf("failed to assert type for attribute type category: %v", props[aegis_neo4j.AttrCategory])
	}

	if dataType, ok := props[aegis_neo4j.AttrDataType].(string); ok {
		attributeType.DataType = dataType
	} else {
		return nil, fmt.Errorf("failed to assert type for attribute type dataType: %v", props[aegis_neo4j.AttrDataType])
	}

	if allowedValuesJSON, ok := props[aegis_neo4j.AttrAllowedValues].(string); ok && allowedValuesJSON != "" {
		if err := json.Unmarshal([]byte(allowedValuesJSON), &attributeType.AllowedValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allowed values: %w", err)
		}
	}

	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		attributeType.OrganizationID = organizationID
	}

	if active, ok := props[aegis_neo4j.AttrActive].(bool); ok {
		attributeType.Active = active
	}

	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		attributeType.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		attributeType.UpdatedAt = parseTime(updatedAt)
	}

	return attributeType, nil
}
