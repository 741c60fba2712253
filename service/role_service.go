package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/dao"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/util"
)

// IRoleService defines the interface for role operations
type IRoleService interface {
	CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error)
	UpdateRole(ctx context.Context, role model.Role, updaterID string) (*model.Role, error)
	DeleteRole(ctx context.Context, roleID, organizationID, deleterID string) error
	GetRole(ctx context.Context, roleID, organizationID string) (*model.Role, error)
	ListRoles(ctx context.Context, organizationID string, limit, offset int) ([]*model.Role, error)
	GrantPolicies(ctx context.Context, roleID, organizationID string, policyIDs []string, granterID string) error
	RevokePolicy(ctx context.Context, roleID, organizationID, policyID, revokerID string) error
	AssignRole(ctx context.Context, assignment model.RoleAssignment, assignerID string) (*model.RoleAssignment, error)
	RevokeRole(ctx context.Context, userID, roleID, organizationID, revokerID string) error
	ListAssignmentsForUser(ctx context.Context, userID, organizationID string) ([]*model.RoleAssignment, error)
}

// RoleService handles business logic for role operations
type RoleService struct {
	roleDAO         *dao.RoleDAO
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IRoleService = &RoleService{}

// NewRoleService creates a new instance of RoleService
func NewRoleService(roleDAO *dao.RoleDAO, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *RoleService {
	return &RoleService{
		roleDAO:         roleDAO,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// CreateRole handles the creation of a new role
func (s *RoleService) CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error) {
	if err := s.validationUtil.ValidateRole(role); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}

	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	roleID, err := s.roleDAO.CreateRole(ctx, role)
	if err != nil {
		logger.Error("Error creating role", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	role.ID = roleID

	logger.Info("Role created successfully", zap.String("roleID", roleID), zap.String("creatorID", creatorID))
	return &role, nil
}

// UpdateRole handles updates to an existing role
func (s *RoleService) UpdateRole(ctx context.Context, role model.Role, updaterID string) (*model.Role, error) {
	if err := s.validationUtil.ValidateRole(role); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}

	updatedRole, err := s.roleDAO.UpdateRole(ctx, role)
	if err != nil {
		logger.Error("Error updating role", zap.Error(err), zap.String("roleID", role.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, role.OrganizationID)

	logger.Info("Role updated successfully", zap.String("roleID", role.ID), zap.String("updaterID", updaterID))
	return updatedRole, nil
}

// DeleteRole handles the deletion of a role and its assignments
func (s *RoleService) DeleteRole(ctx context.Context, roleID, organizationID, deleterID string) error {
	if err := s.roleDAO.DeleteRole(ctx, roleID, organizationID); err != nil {
		logger.Error("Error deleting role", zap.Error(err), zap.String("roleID", roleID), zap.String("deleterID", deleterID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	logger.Info("Role deleted successfully", zap.String("roleID", roleID), zap.String("deleterID", deleterID))
	return nil
}

// GetRole retrieves a role by its ID
func (s *RoleService) GetRole(ctx context.Context, roleID, organizationID string) (*model.Role, error) {
	return s.roleDAO.GetRole(ctx, roleID, organizationID)
}

// ListRoles retrieves an organization's roles
func (s *RoleService) ListRoles(ctx context.Context, organizationID string, limit, offset int) ([]*model.Role, error) {
	roles, err := s.roleDAO.ListRoles(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing roles", zap.Error(err), zap.String("organizationID", organizationID))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// GrantPolicies attaches policies to a role
func (s *RoleService) GrantPolicies(ctx context.Context, roleID, organizationID string, policyIDs []string, granterID string) error {
	if len(policyIDs) == 0 {
		return fmt.Errorf("no policy IDs provided")
	}

	if err := s.roleDAO.GrantPolicies(ctx, roleID, organizationID, policyIDs); err != nil {
		logger.Error("Error granting policies to role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("granterID", granterID))
		return err
	}

	if err := s.notificationSvc.NotifyGrantChange(ctx, "role_policies", roleID, organizationID); err != nil {
		logger.Warn("Failed to send grant change notification", zap.Error(err))
	}
	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}

// RevokePolicy detaches a policy from a role
func (s *RoleService) RevokePolicy(ctx context.Context, roleID, organizationID, policyID, revokerID string) error {
	if err := s.roleDAO.RevokePolicy(ctx, roleID, organizationID, policyID); err != nil {
		logger.Error("Error revoking policy from role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("policyID", policyID),
			zap.String("revokerID", revokerID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}

// AssignRole grants a role to a user
func (s *RoleService) AssignRole(ctx context.Context, assignment model.RoleAssignment, assignerID string) (*model.RoleAssignment, error) {
	if err := s.validationUtil.ValidateRoleAssignment(assignment); err != nil {
		return nil, fmt.Errorf("invalid role assignment: %w", err)
	}

	if assignment.Scope == "" {
		assignment.Scope = model.ScopeOrganization
	}
	assignment.AssignedBy = assignerID
	assignment.AssignedAt = time.Now()

	assignmentID, err := s.roleDAO.AssignRole(ctx, assignment)
	if err != nil {
		logger.Error("Error assigning role",
			zap.Error(err),
			zap.String("userID", assignment.UserID),
			zap.String("roleID", assignment.RoleID),
			zap.String("assignerID", assignerID))
		return nil, err
	}

	assignment.ID = assignmentID

	if err := s.notificationSvc.NotifyGrantChange(ctx, "role_assignment", assignment.UserID, assignment.OrganizationID); err != nil {
		logger.Warn("Failed to send grant change notification", zap.Error(err))
	}
	s.eventBus.Publish(ctx, util.EventGrantChanged, assignment.OrganizationID)

	logger.Info("Role assigned successfully",
		zap.String("assignmentID", assignmentID),
		zap.String("assignerID", assignerID))
	return &assignment, nil
}

// RevokeRole removes a user's role assignment
func (s *RoleService) RevokeRole(ctx context.Context, userID, roleID, organizationID, revokerID string) error {
	if err := s.roleDAO.RevokeRole(ctx, userID, roleID, organizationID); err != nil {
		logger.Error("Error revoking role",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID),
			zap.String("revokerID", revokerID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}

// ListAssignmentsForUser retrieves a user's role assignments
func (s *RoleService) ListAssignmentsForUser(ctx context.Context, userID, organizationID string) ([]*model.RoleAssignment, error) {
	return s.roleDAO.ListAssignmentsForUser(ctx, userID, organizationID)
}
