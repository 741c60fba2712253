package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lumenhr/aegis/api/dao"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/util"
)

// IPolicyService defines the interface for policy authoring operations
type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.Policy, creatorID string) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, updaterID string) (*model.Policy, error)
	DeactivatePolicy(ctx context.Context, policyID, organizationID, updaterID string) error
	DeletePolicy(ctx context.Context, policyID, organizationID, deleterID string) error
	GetPolicy(ctx context.Context, policyID, organizationID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, organizationID string, limit, offset int) ([]*model.Policy, error)
	SearchPolicies(ctx context.Context, organizationID string, criteria model.PolicySearchCriteria) ([]*model.Policy, error)
	BulkCreatePolicies(ctx context.Context, policies []model.Policy, creatorID string) ([]string, error)
}

// PolicyService handles business logic for policy operations
type PolicyService struct {
	policyDAO        *dao.PolicyDAO
	attributeTypeDAO *dao.AttributeTypeDAO
	validationUtil   *util.ValidationUtil
	cacheService     *util.CacheService
	notificationSvc  *util.NotificationService
	eventBus         *util.EventBus
}

var _ IPolicyService = &PolicyService{}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(policyDAO *dao.PolicyDAO, attributeTypeDAO *dao.AttributeTypeDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		policyDAO:        policyDAO,
		attributeTypeDAO: attributeTypeDAO,
		validationUtil:   validationUtil,
		cacheService:     cacheService,
		notificationSvc:  notificationSvc,
		eventBus:         eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(util.EventPolicyCreated, service.handlePolicyCreated)
	eventBus.Subscribe(util.EventPolicyUpdated, service.handlePolicyUpdated)
	eventBus.Subscribe(util.EventPolicyDeleted, service.handlePolicyDeleted)

	return service
}

func (s *PolicyService) handlePolicyCreated(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy created event received", zap.String("policyID", policy.ID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "created", policy); err != nil {
		logger.Warn("Failed to send policy creation notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	return nil
}

func (s *PolicyService) handlePolicyUpdated(ctx context.Context, event util.Event) error {
	payload, ok := event.Payload.(map[string]model.Policy)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	newPolicy := payload["new"]

	logger.Info("Policy updated event received", zap.String("policyID", newPolicy.ID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "updated", newPolicy); err != nil {
		logger.Warn("Failed to send policy update notification", zap.Error(err), zap.String("policyID", newPolicy.ID))
	}

	return nil
}

func (s *PolicyService) handlePolicyDeleted(ctx context.Context, event util.Event) error {
	policyID, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	logger.Info("Policy deleted event received", zap.String("policyID", policyID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "deleted", model.Policy{ID: policyID}); err != nil {
		logger.Warn("Failed to send policy deletion notification", zap.Error(err), zap.String("policyID", policyID))
	}

	return nil
}

// CreatePolicy handles the creation of a new policy
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.Policy, creatorID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	if err := s.checkRuleAttributes(ctx, policy); err != nil {
		return nil, err
	}

	if policy.CombineLogic == "" {
		policy.CombineLogic = model.CombineAND
	}
	for i := range policy.Rules {
		if policy.Rules[i].ID == "" {
			policy.Rules[i].ID = uuid.New().String()
		}
	}

	policy.CreatedAt = time.Now()
	policy.UpdatedAt = time.Now()

	policyID, err := s.policyDAO.CreatePolicy(ctx, policy)
	if err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	policy.ID = policyID

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyCreated, policy)

	logger.Info("Policy created successfully", zap.String("policyID", policyID), zap.String("creatorID", creatorID))
	return &policy, nil
}

// UpdatePolicy handles updates to an existing policy
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, updaterID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	if err := s.checkRuleAttributes(ctx, policy); err != nil {
		return nil, err
	}

	oldPolicy, err := s.policyDAO.GetPolicy(ctx, policy.ID, policy.OrganizationID)
	if err != nil {
		logger.Error("Error retrieving existing policy", zap.Error(err), zap.String("policyID", policy.ID))
		return nil, err
	}

	// Check if there are any differences between the old and new policies
	if !s.hasPolicyChanged(oldPolicy, &policy) {
		logger.Info("No changes detected in the policy, skipping update", zap.String("policyID", policy.ID))
		return oldPolicy, nil
	}

	if policy.CombineLogic == "" {
		policy.CombineLogic = model.CombineAND
	}
	for i := range policy.Rules {
		if policy.Rules[i].ID == "" {
			policy.Rules[i].ID = uuid.New().String()
		}
	}
	policy.UpdatedAt = time.Now()

	updatedPolicy, err := s.policyDAO.UpdatePolicy(ctx, policy)
	if err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, *updatedPolicy); err != nil {
		logger.Warn("Failed to update policy in cache", zap.Error(err), zap.String("policyID", policy.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyUpdated, map[string]model.Policy{
		"old": *oldPolicy,
		"new": *updatedPolicy,
	})

	logger.Info("Policy updated successfully", zap.String("policyID", policy.ID), zap.String("updaterID", updaterID))
	return updatedPolicy, nil
}

// DeactivatePolicy retires a policy without removing it from the graph
func (s *PolicyService) DeactivatePolicy(ctx context.Context, policyID, organizationID, updaterID string) error {
	if err := s.policyDAO.DeactivatePolicy(ctx, policyID, organizationID); err != nil {
		logger.Error("Error deactivating policy", zap.Error(err), zap.String("policyID", policyID), zap.String("updaterID", updaterID))
		return err
	}

	if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
		logger.Warn("Failed to delete policy from cache", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, util.EventPolicyDeactivated, policyID)

	logger.Info("Policy deactivated successfully", zap.String("policyID", policyID), zap.String("updaterID", updaterID))
	return nil
}

// DeletePolicy handles the hard deletion of a policy
func (s *PolicyService) DeletePolicy(ctx context.Context, policyID, organizationID, deleterID string) error {
	err := s.policyDAO.DeletePolicy(ctx, policyID, organizationID)
	if err != nil {
		logger.Error("Error deleting policy", zap.Error(err), zap.String("policyID", policyID), zap.String("deleterID", deleterID))
		return err
	}

	// Remove from cache
	if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
		logger.Warn("Failed to delete policy from cache", zap.Error(err), zap.String("policyID", policyID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyDeleted, policyID)

	logger.Info("Policy deleted successfully", zap.String("policyID", policyID), zap.String("deleterID", deleterID))
	return nil
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID, organizationID string) (*model.Policy, error) {
	// Try to get from cache first
	cachedPolicy, err := s.cacheService.GetPolicy(ctx, policyID)
	if err == nil && cachedPolicy != nil && cachedPolicy.OrganizationID == organizationID {
		return cachedPolicy, nil
	}

	policy, err := s.policyDAO.GetPolicy(ctx, policyID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, aegis_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, *policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	return policy, nil
}

// ListPolicies retrieves an organization's policies with pagination
func (s *PolicyService) ListPolicies(ctx context.Context, organizationID string, limit, offset int) ([]*model.Policy, error) {
	policies, err := s.policyDAO.ListPolicies(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	return policies, nil
}

// SearchPolicies searches for policies based on given criteria
func (s *PolicyService) SearchPolicies(ctx context.Context, organizationID string, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	policies, err := s.policyDAO.SearchPolicies(ctx, organizationID, criteria)
	if err != nil {
		logger.Error("Error searching policies", zap.Error(err), zap.Any("criteria", criteria))
		return nil, fmt.Errorf("failed to search policies: %w", err)
	}

	return policies, nil
}

// BulkCreatePolicies creates multiple policies in parallel
func (s *PolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, creatorID string) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	policyIDs := make([]string, len(policies))

	// Limit concurrency to avoid overwhelming the system
	semaphore := make(chan struct{}, 10)

	for i, policy := range policies {
		i, policy := i, policy
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			createdPolicy, err := s.CreatePolicy(ctx, policy, creatorID)
			if err != nil {
				return err
			}
			policyIDs[i] = createdPolicy.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk create policies", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, fmt.Errorf("failed to bulk create policies: %w", err)
	}

	logger.Info("Bulk create policies completed", zap.Int("count", len(policyIDs)), zap.String("creatorID", creatorID))
	return policyIDs, nil
}

// checkRuleAttributes verifies every rule references an attribute type
// registered in the policy's own organization.
func (s *PolicyService) checkRuleAttributes(ctx context.Context, policy model.Policy) error {
	seen := make(map[string]bool)
	for _, rule := range policy.Rules {
		if seen[rule.AttributeCode] {
			continue
		}
		seen[rule.AttributeCode] = true

		attributeType, err := s.attributeTypeDAO.GetAttributeTypeByCode(ctx, rule.AttributeCode, policy.OrganizationID)
		if err != nil {
			if errors.Is(err, aegis_errors.ErrAttributeTypeNotFound) {
				return fmt.Errorf("rule references unknown attribute type %q: %w", rule.AttributeCode, aegis_errors.ErrAttributeTypeNotFound)
			}
			return err
		}
		if attributeType.Category != rule.AttributeCategory {
			return fmt.Errorf("rule category %q does not match attribute type %q category %q: %w",
				rule.AttributeCategory, rule.AttributeCode, attributeType.Category, aegis_errors.ErrInvalidPolicyData)
		}
	}
	return nil
}

// hasPolicyChanged checks if there are any differences between the old and new policies
func (s *PolicyService) hasPolicyChanged(oldPolicy, newPolicy *model.Policy) bool {
	if oldPolicy.Name != newPolicy.Name ||
		oldPolicy.Description != newPolicy.Description ||
		oldPolicy.Effect != newPolicy.Effect ||
		oldPolicy.Priority != newPolicy.Priority ||
		oldPolicy.ResourceType != newPolicy.ResourceType ||
		oldPolicy.ResourceID != newPolicy.ResourceID ||
		oldPolicy.CombineLogic != newPolicy.CombineLogic ||
		oldPolicy.Active != newPolicy.Active ||
		!reflect.DeepEqual(oldPolicy.Actions, newPolicy.Actions) ||
		!reflect.DeepEqual(oldPolicy.Rules, newPolicy.Rules) ||
		!reflect.DeepEqual(oldPolicy.ValidFrom, newPolicy.ValidFrom) ||
		!reflect.DeepEqual(oldPolicy.ValidUntil, newPolicy.ValidUntil) {
		return true
	}
	return false
}
