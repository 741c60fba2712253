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

// IUserPolicyService defines the interface for direct policy grants
type IUserPolicyService interface {
	AssignPolicy(ctx context.Context, userPolicy model.UserPolicy, assignerID string) (*model.UserPolicy, error)
	UpdateAssignment(ctx context.Context, userPolicy model.UserPolicy, updaterID string) (*model.UserPolicy, error)
	RevokePolicy(ctx context.Context, userID, policyID, organizationID, revokerID string) error
	ListUserPolicies(ctx context.Context, userID, organizationID string) ([]*model.UserPolicy, error)
}

// UserPolicyService handles business logic for direct policy grants
type UserPolicyService struct {
	userPolicyDAO   *dao.UserPolicyDAO
	policyDAO       *dao.PolicyDAO
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IUserPolicyService = &UserPolicyService{}

// NewUserPolicyService creates a new instance of UserPolicyService
func NewUserPolicyService(userPolicyDAO *dao.UserPolicyDAO, policyDAO *dao.PolicyDAO, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *UserPolicyService {
	return &UserPolicyService{
		userPolicyDAO:   userPolicyDAO,
		policyDAO:       policyDAO,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// AssignPolicy grants a policy directly to a user. The target policy must
// exist in the grant's organization.
func (s *UserPolicyService) AssignPolicy(ctx context.Context, userPolicy model.UserPolicy, assignerID string) (*model.UserPolicy, error) {
	if err := s.validationUtil.ValidateUserPolicy(userPolicy); err != nil {
		return nil, fmt.Errorf("invalid user policy: %w", err)
	}

	if _, err := s.policyDAO.GetPolicy(ctx, userPolicy.PolicyID, userPolicy.OrganizationID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return nil, err
	}

	userPolicy.AssignedBy = assignerID

	grantID, err := s.userPolicyDAO.AssignPolicy(ctx, userPolicy)
	if err != nil {
		logger.Error("Error assigning policy to user",
			zap.Error(err),
			zap.String("userID", userPolicy.UserID),
			zap.String("policyID", userPolicy.PolicyID),
			zap.String("assignerID", assignerID))
		return nil, err
	}

	userPolicy.ID = grantID

	if err := s.notificationSvc.NotifyGrantChange(ctx, "user_policy", userPolicy.UserID, userPolicy.OrganizationID); err != nil {
		logger.Warn("Failed to send grant change notification", zap.Error(err))
	}
	s.eventBus.Publish(ctx, util.EventGrantChanged, userPolicy.OrganizationID)

	logger.Info("Policy assigned to user successfully",
		zap.String("grantID", grantID),
		zap.String("assignerID", assignerID))
	return &userPolicy, nil
}

// UpdateAssignment rewrites an existing grant's validity, priority override
// and active flag.
func (s *UserPolicyService) UpdateAssignment(ctx context.Context, userPolicy model.UserPolicy, updaterID string) (*model.UserPolicy, error) {
	if userPolicy.ID == "" {
		return nil, fmt.Errorf("grant ID cannot be empty: %w", aegis_errors.ErrInvalidUserPolicy)
	}
	if userPolicy.OrganizationID == "" {
		return nil, fmt.Errorf("grant organization ID cannot be empty: %w", aegis_errors.ErrInvalidUserPolicy)
	}

	updated, err := s.userPolicyDAO.UpdateAssignment(ctx, userPolicy)
	if err != nil {
		logger.Error("Error updating user policy grant",
			zap.Error(err),
			zap.String("grantID", userPolicy.ID),
			zap.String("updaterID", updaterID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, userPolicy.OrganizationID)

	return updated, nil
}

// RevokePolicy removes a user's direct policy grant
func (s *UserPolicyService) RevokePolicy(ctx context.Context, userID, policyID, organizationID, revokerID string) error {
	if err := s.userPolicyDAO.RevokePolicy(ctx, userID, policyID, organizationID); err != nil {
		logger.Error("Error revoking policy from user",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("policyID", policyID),
			zap.String("revokerID", revokerID))
		return err
	}

	s.eventBus.Publish(ctx, util.EventGrantChanged, organizationID)

	return nil
}

// ListUserPolicies retrieves a user's direct policy grants
func (s *UserPolicyService) ListUserPolicies(ctx context.Context, userID, organizationID string) ([]*model.UserPolicy, error) {
	userPolicies, err := s.userPolicyDAO.ListUserPolicies(ctx, userID, organizationID)
	if err != nil {
		logger.Error("Error listing user policies",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, fmt.Errorf("failed to list user policies: %w", err)
	}

	return userPolicies, nil
}
