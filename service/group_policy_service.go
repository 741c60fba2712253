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

// IGroupPolicyService defines the interface for group policy operations
type IGroupPolicyService interface {
	CreateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy, creatorID string) (*model.GroupPolicy, error)
	UpdateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy, updaterID string) (*model.GroupPolicy, error)
	DeleteGroupPolicy(ctx context.Context, groupPolicyID, organizationID, deleterID string) error
	GetGroupPolicy(ctx context.Context, groupPolicyID, organizationID string) (*model.GroupPolicy, error)
	ListGroupPolicies(ctx context.Context, organizationID string, limit, offset int) ([]*model.GroupPolicy, error)
	GrantPolicies(ctx context.Context, groupPolicyID, organizationID string, policyIDs []string, granterID string) error
	RevokePolicy(ctx context.Context, groupPolicyID, organizationID, policyID, revokerID string) error
}

// GroupPolicyService handles business logic for attribute-matched policy
// groups.
type GroupPolicyService struct {
	groupPolicyDAO  *dao.GroupPolicyDAO
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IGroupPolicyService = &GroupPolicyService{}

// NewGroupPolicyService creates a new instance of GroupPolicyService
func NewGroupPolicyService(groupPolicyDAO *dao.GroupPolicyDAO, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *GroupPolicyService {
	return &GroupPolicyService{
		groupPolicyDAO:  groupPolicyDAO,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// CreateGroupPolicy handles the creation of a new group policy
func (s *GroupPolicyService) CreateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy, creatorID string) (*model.GroupPolicy, error) {
	if err := s.validationUtil.ValidateGroupPolicy(groupPolicy); err != nil {
		return nil, fmt.Errorf("invalid group policy: %w", err)
	}

	groupPolicy.CreatedAt = time.Now()
	groupPolicy.UpdatedAt = time.Now()

	groupPolicyID, err := s.groupPolicyDAO.CreateGroupPolicy(ctx, groupPolicy)
	if err != nil {
		logger.Error("Error creating group policy", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	groupPolicy.ID = groupPolicyID

	logger.Info("Group policy created successfully",
		zap.String("groupPolicyID", groupPolicyID),
		zap.String("creatorID", creatorID))
	return &groupPolicy, nil
}

// UpdateGroupPolicy handles updates to an existing group policy
func (s *GroupPolicyService) UpdateGroupPolicy(ctx context.Context, groupPolicy model.GroupPolicy, updaterID string) (*model.GroupPolicy, error) {
	if err := s.validationUtil.ValidateGroupPolicy(groupPolicy); err != nil {
		return nil, fmt.Errorf("invalid group policy: %w", err)
	}

	updated, err := s.groupPolicyDAO.UpdateGroupPolicy(ctx, groupPolicy)
	if err != nil {
		logger.Error("Error updating group policy", zap.Error(err), zap.String("groupPolicyID", groupPolicy.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, groupPolicy.OrganizationID)

	logger.Info("Group policy updated successfully",
		zap.String("groupPolicyID", updated.ID),
		zap.String("updaterID", updaterID))
	return updated, nil
}

// DeleteGroupPolicy handles the deletion of a group policy
func (s *GroupPolicyService) DeleteGroupPolicy(ctx context.Context, groupPolicyID, organizationID, deleterID string) error {
	if err := s.groupPolicyDAO.DeleteGroupPolicy(ctx, groupPolicyID, organizationID); err != nil {
		logger.Error("Error deleting group policy", zap.Error(err), zap.String("groupPolicyID", groupPolicyID), zap.String("deleterID", deleterID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	logger.Info("Group policy deleted successfully",
		zap.String("groupPolicyID", groupPolicyID),
		zap.String("deleterID", deleterID))
	return nil
}

// GetGroupPolicy retrieves a group policy by its ID
func (s *GroupPolicyService) GetGroupPolicy(ctx context.Context, groupPolicyID, organizationID string) (*model.GroupPolicy, error) {
	return s.groupPolicyDAO.GetGroupPolicy(ctx, groupPolicyID, organizationID)
}

// ListGroupPolicies retrieves an organization's group policies
func (s *GroupPolicyService) ListGroupPolicies(ctx context.Context, organizationID string, limit, offset int) ([]*model.GroupPolicy, error) {
	groupPolicies, err := s.groupPolicyDAO.ListGroupPolicies(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing group policies", zap.Error(err), zap.String("organizationID", organizationID))
		return nil, fmt.Errorf("failed to list group policies: %w", err)
	}

	return groupPolicies, nil
}

// GrantPolicies attaches policies to a group policy
func (s *GroupPolicyService) GrantPolicies(ctx context.Context, groupPolicyID, organizationID string, policyIDs []string, granterID string) error {
	if len(policyIDs) == 0 {
		return fmt.Errorf("no policy IDs provided")
	}

	if err := s.groupPolicyDAO.GrantPolicies(ctx, groupPolicyID, organizationID, policyIDs); err != nil {
		logger.Error("Error granting policies to group policy",
			zap.Error(err),
			zap.String("groupPolicyID", groupPolicyID),
			zap.String("granterID", granterID))
		return err
	}

	if err := s.notificationSvc.NotifyGrantChange(ctx, "group_policies", groupPolicyID, organizationID); err != nil {
		logger.Warn("Failed to send grant change notification", zap.Error(err))
	}
	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}

// RevokePolicy detaches a policy from a group policy
func (s *GroupPolicyService) RevokePolicy(ctx context.Context, groupPolicyID, organizationID, policyID, revokerID string) error {
	if err := s.groupPolicyDAO.RevokePolicy(ctx, groupPolicyID, organizationID, policyID); err != nil {
		logger.Error("Error revoking policy from group policy",
			zap.Error(err),
			zap.String("groupPolicyID", groupPolicyID),
			zap.String("policyID", policyID),
			zap.String("revokerID", revokerID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}
