// api/dao/user_dao.go
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

	"github.com/lumenhr/aegis/api/db"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	aegis_neo4j "github.com/lumenhr/aegis/api/model/neo4j"
)

// UserDAO runs against the shared driver via the db transaction helpers.
type UserDAO struct{}

func NewUserDAO() *UserDAO {
	dao := &UserDAO{}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for User", zap.Error(err))
	}
	return dao
}

func (dao *UserDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on User ID")

	_, err := db.ExecuteWriteTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_user_id IF NOT EXISTS
        FOR (u:` + aegis_neo4j.LabelUser + `) REQUIRE u.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on User ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on User ID")
	return nil
}

// CreateUser upserts a user node. The employment profile persists as a JSON
// property; evaluation unpacks it into subject attributes.
func (dao *UserDAO) CreateUser(ctx context.Context, user model.User) (string, error) {
	start := time.Now()
	logger.Info("Creating new user", zap.String("email", user.Email))

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	result, err := db.ExecuteWriteTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (u:` + aegis_neo4j.LabelUser + ` {id: $id})
        ON CREATE SET u += $props
        ON MATCH SET u += $props
        `

		if user.OrganizationID != "" {
			query += `
        WITH u
        MERGE (o:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        MERGE (u)-[:` + aegis_neo4j.RelWorksFor + `]->(o)
        `
		}

		query += `
        RETURN u.id as id
        `

		params := map[string]interface{}{
			"id":    user.ID,
			"props": userProps(&user, time.Now()),
		}
		if user.OrganizationID != "" {
			params["organizationID"] = user.OrganizationID
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, aegis_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
			zap.Duration("duration", duration))
		return "", err
	}

	userID := fmt.Sprintf("%v", result)
	logger.Info("User created successfully",
		zap.String("userID", userID),
		zap.Duration("duration", duration))

	return userID, nil
}

func (dao *UserDAO) UpdateUser(ctx context.Context, user model.User) (*model.User, error) {
	start := time.Now()
	logger.Info("Updating user", zap.String("userID", user.ID))

	result, err := db.ExecuteWriteTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $id})
        SET u += $props
        RETURN u
        `

		props := userProps(&user, time.Now())
		delete(props, aegis_neo4j.AttrCreatedAt)

		result, err := transaction.Run(query, map[string]interface{}{
			"id":    user.ID,
			"props": props,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updatedUser, err := mapNodeToUser(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map user node to struct: %w", err)
			}
			return updatedUser, nil
		}

		return nil, aegis_errors.ErrUserNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update user",
			zap.Error(err),
			zap.String("userID", user.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedUser := result.(*model.User)
	logger.Info("User updated successfully",
		zap.String("userID", user.ID),
		zap.Duration("duration", duration))

	return updatedUser, nil
}

func (dao *UserDAO) DeleteUser(ctx context.Context, userID string) error {
	start := time.Now()
	logger.Info("Deleting user", zap.String("userID", userID))

	_, err := db.ExecuteWriteTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $id})
        DETACH DELETE u
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": userID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		summary, err := result.Consume()
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if summary.Counters().NodesDeleted() == 0 {
			return nil, aegis_errors.ErrUserNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete user",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("User deleted successfully",
		zap.String("userID", userID),
		zap.Duration("duration", duration))

	return nil
}

func (dao *UserDAO) GetUser(ctx context.Context, userID string) (*model.User, error) {
	start := time.Now()
	logger.Info("Retrieving user", zap.String("userID", userID))

	result, err := db.ExecuteReadTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $id})
        RETURN u
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": userID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToUser(node)
		}

		return nil, aegis_errors.ErrUserNotFound
	})

	duration := time.Since(start)
	if err != nil {
		if err == aegis_errors.ErrUserNotFound {
			logger.Warn("User not found",
				zap.String("userID", userID),
				zap.Duration("duration", duration))
		} else {
			logger.Error("Failed to retrieve user",
				zap.Error(err),
				zap.String("userID", userID),
				zap.Duration("duration", duration))
		}
		return nil, err
	}

	user := result.(*model.User)
	logger.Info("User retrieved successfully",
		zap.String("userID", userID),
		zap.Duration("duration", duration))

	return user, nil
}

func (dao *UserDAO) ListUsers(ctx context.Context, organizationID string, limit int, offset int) ([]*model.User, error) {
	start := time.Now()
	logger.Info("Listing users",
		zap.String("organizationID", organizationID),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	result, err := db.ExecuteReadTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + `)-[:` + aegis_neo4j.RelWorksFor + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID})
        RETURN u
        ORDER BY u.createdAt DESC
        SKIP $offset
        LIMIT $limit
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"organizationID": organizationID,
			"limit":          limit,
			"offset":         offset,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		var users []*model.User
		for result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			user, err := mapNodeToUser(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map user node to struct: %w", err)
			}
			users = append(users, user)
		}

		return users, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to list users",
			zap.Error(err),
			zap.String("organizationID", organizationID),
			zap.Duration("duration", duration))
		return nil, err
	}

	users := result.([]*model.User)
	logger.Info("Users listed successfully",
		zap.Int("count", len(users)),
		zap.Duration("duration", duration))

	return users, nil
}

// SearchUsers searches users by criteria. OrganizationID is required so a
// search can never cross tenants.
func (dao *UserDAO) SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error) {
	start := time.Now()
	logger.Info("Searching users", zap.Any("criteria", criteria))

	if criteria.OrganizationID == "" {
		return nil, aegis_errors.ErrInvalidSearchCriteria
	}

	result, err := db.ExecuteReadTransaction(ctx, func(transaction neo4j.Transaction) (interface{}, error) {
		var queryBuilder strings.Builder
		queryBuilder.WriteString(`MATCH (u:` + aegis_neo4j.LabelUser + `)-[:` + aegis_neo4j.RelWorksFor + `]->(:` + aegis_neo4j.LabelOrganization + ` {id: $organizationID}) WHERE 1=1`)

		params := map[string]interface{}{
			"organizationID": criteria.OrganizationID,
		}

		if criteria.Email != "" {
			queryBuilder.WriteString(" AND u.email CONTAINS $email")
			params["email"] = criteria.Email
		}

		if criteria.Name != "" {
			queryBuilder.WriteString(" AND u.name CONTAINS $name")
			params["name"] = criteria.Name
		}

		queryBuilder.WriteString(" RETURN u ORDER BY u.name")

		if criteria.Offset > 0 {
			queryBuilder.WriteString(" SKIP $offset")
			params["offset"] = criteria.Offset
		}
		if criteria.Limit > 0 {
			queryBuilder.WriteString(" LIMIT $limit")
			params["limit"] = criteria.Limit
		}

		result, err := transaction.Run(queryBuilder.String(), params)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		var users []*model.User
		for result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			user, err := mapNodeToUser(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map user node to struct: %w", err)
			}
			users = append(users, user)
		}

		return users, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to search users",
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, err
	}

	users := result.([]*model.User)
	logger.Info("Users searched successfully",
		zap.Int("count", len(users)),
		zap.Duration("duration", duration))

	return users, nil
}

func userProps(user *model.User, now time.Time) map[string]interface{} {
	profileJSON, _ := json.Marshal(user.Profile)

	return map[string]interface{}{
		aegis_neo4j.AttrEmail:          user.Email,
		aegis_neo4j.AttrName:           user.Name,
		"isVerified":                   user.IsVerified,
		"isOrgAdmin":                   user.IsOrgAdmin,
		"isSuperuser":                  user.IsSuperuser,
		aegis_neo4j.AttrOrganizationID: user.OrganizationID,
		"organizationName":             user.OrganizationName,
		aegis_neo4j.AttrProfile:        string(profileJSON),
		aegis_neo4j.AttrCreatedAt:      now.Format(time.RFC3339),
		aegis_neo4j.AttrUpdatedAt:      now.Format(time.RFC3339),
	}
}

// Helper function to map Neo4j Node to User struct
func mapNodeToUser(node neo4j.Node) (*model.User, error) {
	props := node.Props
	user := &model.User{}

	if id, ok := props[aegis_neo4j.AttrID].(string); ok {
		user.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for user ID: %v", props[aegis_neo4j.AttrID])
	}

	if email, ok := props[aegis_neo4j.AttrEmail].(string); ok {
		user.Email = email
	} else {
		return nil, fmt.Errorf("failed to assert type for user email: %v", props[aegis_neo4j.AttrEmail])
	}

	if name, ok := props[aegis_neo4j.AttrName].(string); ok {
		user.Name = name
	}

	if isVerified, ok := props["isVerified"].(bool); ok {
		user.IsVerified = isVerified
	}

	if isOrgAdmin, ok := props["isOrgAdmin"].(bool); ok {
		user.IsOrgAdmin = isOrgAdmin
	}

	if isSuperuser, ok := props["isSuperuser"].(bool); ok {
		user.IsSuperuser = isSuperuser
	}

	if organizationID, ok := props[aegis_neo4j.AttrOrganizationID].(string); ok {
		user.OrganizationID = organizationID
	}

	if organizationName, ok := props["organizationName"].(string); ok {
		user.OrganizationName = organizationName
	}

	if profileJSON, ok := props[aegis_neo4j.AttrProfile].(string); ok && profileJSON != "" && profileJSON != "null" {
		if err := json.Unmarshal([]byte(profileJSON), &user.Profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user profile: %w", err)
		}
	}

	if createdAt, ok := props[aegis_neo4j.AttrCreatedAt].(string); ok {
		user.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props[aegis_neo4j.AttrUpdatedAt].(string); ok {
		user.UpdatedAt = parseTime(updatedAt)
	}

	return user, nil
}
