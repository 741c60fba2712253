// api/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/dao"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/util"
)

// IUserService defines the interface for user operations
type IUserService interface {
	CreateUser(ctx context.Context, user model.User, creatorID string) (*model.User, error)
	UpdateUser(ctx context.Context, user model.User, updaterID string) (*model.User, error)
	DeleteUser(ctx context.Context, userID string, deleterID string) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context, organizationID string, limit int, offset int) ([]*model.User, error)
	SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error)
}

// UserService handles business logic for user operations
type UserService struct {
	userDAO        *dao.UserDAO
	validationUtil *util.ValidationUtil
	cacheService   *util.CacheService
	eventBus       *util.EventBus
}

var _ IUserService = &UserService{}

// NewUserService creates a new instance of UserService
func NewUserService(userDAO *dao.UserDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, eventBus *util.EventBus) *UserService {
	return &UserService{
		userDAO:        userDAO,
		validationUtil: validationUtil,
		cacheService:   cacheService,
		eventBus:       eventBus,
	}
}

// CreateUser handles the creation of a new user
func (s *UserService) CreateUser(ctx context.Context, user model.User, creatorID string) (*model.User, error) {
	if err := s.validationUtil.ValidateUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	userID, err := s.userDAO.CreateUser(ctx, user)
	if err != nil {
		logger.Error("Error creating user", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	user.ID = userID

	if err := s.cacheService.SetUser(ctx, user); err != nil {
		logger.Warn("Failed to cache user", zap.Error(err), zap.String("userID", userID))
	}

	logger.Info("User created successfully", zap.String("userID", userID), zap.String("creatorID", creatorID))
	return &user, nil
}

// UpdateUser handles updates to an existing user
func (s *UserService) UpdateUser(ctx context.Context, user model.User, updaterID string) (*model.User, error) {
	if err := s.validationUtil.ValidateUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	updatedUser, err := s.userDAO.UpdateUser(ctx, user)
	if err != nil {
		logger.Error("Error updating user", zap.Error(err), zap.String("userID", user.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	// Profile changes shift subject attributes, so the stale copy must go
	if err := s.cacheService.SetUser(ctx, *updatedUser); err != nil {
		logger.Warn("Failed to cache user", zap.Error(err), zap.String("userID", user.ID))
	}

	logger.Info("User updated successfully", zap.String("userID", user.ID), zap.String("updaterID", updaterID))
	return updatedUser, nil
}

// DeleteUser handles the deletion of a user
func (s *UserService) DeleteUser(ctx context.Context, userID string, deleterID string) error {
	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrUserNotFound) {
			return aegis_errors.ErrUserNotFound
		}
		logger.Error("Error retrieving user for deletion", zap.Error(err), zap.String("userID", userID))
		return err
	}

	if err := s.userDAO.DeleteUser(ctx, userID); err != nil {
		logger.Error("Error deleting user", zap.Error(err), zap.String("userID", userID), zap.String("deleterID", deleterID))
		return err
	}

	if err := s.cacheService.DeleteUser(ctx, userID); err != nil {
		logger.Warn("Failed to delete user from cache", zap.Error(err), zap.String("userID", userID))
	}

	// Detach-deleting the user severs their direct grants and role assignments
	s.eventBus.Publish(ctx, util.EventGrantChanged, user.OrganizationID)

	logger.Info("User deleted successfully", zap.String("userID", userID), zap.String("deleterID", deleterID))
	return nil
}

// GetUser retrieves a user by their ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	cachedUser, err := s.cacheService.GetUser(ctx, userID)
	if err == nil && cachedUser != nil {
		return cachedUser, nil
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrUserNotFound) {
			return nil, aegis_errors.ErrUserNotFound
		}
		logger.Error("Error retrieving user", zap.Error(err), zap.String("userID", userID))
		return nil, aegis_errors.ErrInternalServer
	}

	if err := s.cacheService.SetUser(ctx, *user); err != nil {
		logger.Warn("Failed to cache user", zap.Error(err), zap.String("userID", userID))
	}

	return user, nil
}

// ListUsers retrieves an organization's users
func (s *UserService) ListUsers(ctx context.Context, organizationID string, limit int, offset int) ([]*model.User, error) {
	users, err := s.userDAO.ListUsers(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing users", zap.Error(err), zap.String("organizationID", organizationID))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// SearchUsers searches users by criteria
func (s *UserService) SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error) {
	users, err := s.userDAO.SearchUsers(ctx, criteria)
	if err != nil {
		logger.Error("Error searching users", zap.Error(err), zap.Any("criteria", criteria))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
