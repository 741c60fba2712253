package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/dao"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/util"
)

// IAttributeTypeService defines the interface for attribute type operations
type IAttributeTypeService interface {
	CreateAttributeType(ctx context.Context, attributeType model.AttributeType, creatorID string) (*model.AttributeType, error)
	UpdateAttributeType(ctx context.Context, attributeType model.AttributeType, updaterID string) (*model.AttributeType, error)
	DeleteAttributeType(ctx context.Context, attributeTypeID, organizationID, deleterID string) error
	GetAttributeType(ctx context.Context, attributeTypeID, organizationID string) (*model.AttributeType, error)
	GetAttributeTypeByCode(ctx context.Context, code, organizationID string) (*model.AttributeType, error)
	ListAttributeTypes(ctx context.Context, organizationID string, limit, offset int) ([]*model.AttributeType, error)
}

// AttributeTypeService handles business logic for attribute type operations
type AttributeTypeService struct {
	attributeTypeDAO *dao.AttributeTypeDAO
	policyDAO        *dao.PolicyDAO
	validationUtil   *util.ValidationUtil
	cacheService     *util.CacheService
	lockService      *util.LockService
	eventBus         *util.EventBus
}

var _ IAttributeTypeService = &AttributeTypeService{}

// NewAttributeTypeService creates a new instance of AttributeTypeService
func NewAttributeTypeService(attributeTypeDAO *dao.AttributeTypeDAO, policyDAO *dao.PolicyDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, lockService *util.LockService, eventBus *util.EventBus) *AttributeTypeService {
	service := &AttributeTypeService{
		attributeTypeDAO: attributeTypeDAO,
		policyDAO:        policyDAO,
		validationUtil:   validationUtil,
		cacheService:     cacheService,
		lockService:      lockService,
		eventBus:         eventBus,
	}

	eventBus.Subscribe(util.EventAttributeTypeDeleted, service.handleAttributeTypeDeleted)

	return service
}

func (s *AttributeTypeService) handleAttributeTypeDeleted(ctx context.Context, event util.Event) error {
	code, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	logger.Info("Attribute type deleted event received", zap.String("code", code))
	return nil
}

// CreateAttributeType registers a new attribute type
func (s *AttributeTypeService) CreateAttributeType(ctx context.Context, attributeType model.AttributeType, creatorID string) (*model.AttributeType, error) {
	if err := s.validationUtil.ValidateAttributeType(attributeType); err != nil {
		return nil, fmt.Errorf("invalid attribute type: %w", err)
	}

	attributeType.CreatedAt = time.Now()
	attributeType.UpdatedAt = time.Now()

	attributeTypeID, err := s.attributeTypeDAO.CreateAttributeType(ctx, attributeType)
	if err != nil {
		logger.Error("Error creating attribute type", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	attributeType.ID = attributeTypeID

	if err := s.cacheService.SetAttributeType(ctx, attributeType); err != nil {
		logger.Warn("Failed to cache attribute type", zap.Error(err), zap.String("attributeTypeID", attributeTypeID))
	}

	logger.Info("Attribute type created successfully",
		zap.String("attributeTypeID", attributeTypeID),
		zap.String("creatorID", creatorID))
	return &attributeType, nil
}

// UpdateAttributeType updates an existing attribute type. The code itself is
// immutable; policies reference it.
func (s *AttributeTypeService) UpdateAttributeType(ctx context.Context, attributeType model.AttributeType, updaterID string) (*model.AttributeType, error) {
	if err := s.validationUtil.ValidateAttributeType(attributeType); err != nil {
		return nil, fmt.Errorf("invalid attribute type: %w", err)
	}

	existing, err := s.attributeTypeDAO.GetAttributeType(ctx, attributeType.ID, attributeType.OrganizationID)
	if err != nil {
		return nil, err
	}
	if existing.Code != attributeType.Code {
		return nil, fmt.Errorf("attribute type code cannot change: %w", aegis_errors.ErrInvalidAttributeType)
	}

	updated, err := s.attributeTypeDAO.UpdateAttributeType(ctx, attributeType)
	if err != nil {
		logger.Error("Error updating attribute type", zap.Error(err), zap.String("attributeTypeID", attributeType.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	if err := s.cacheService.SetAttributeType(ctx, *updated); err != nil {
		logger.Warn("Failed to cache attribute type", zap.Error(err), zap.String("attributeTypeID", updated.ID))
	}

	logger.Info("Attribute type updated successfully",
		zap.String("attributeTypeID", updated.ID),
		zap.String("updaterID", updaterID))
	return updated, nil
}

// DeleteAttributeType removes an attribute type. Rules referencing its code
// are deactivated first so no policy is left evaluating a dangling attribute.
// The whole sequence runs under a tenant-scoped lock: it pages through the
// organization's policies and must not interleave with a second deletion.
func (s *AttributeTypeService) DeleteAttributeType(ctx context.Context, attributeTypeID, organizationID, deleterID string) error {
	attributeType, err := s.attributeTypeDAO.GetAttributeType(ctx, attributeTypeID, organizationID)
	if err != nil {
		return err
	}

	lockName := fmt.Sprintf("attribute-type:%s:%s", organizationID, attributeType.Code)
	locked, err := s.lockService.Acquire(ctx, lockName, deleteLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire attribute type lock: %w", err)
	}
	if !locked {
		return aegis_errors.ErrAttributeTypeConflict
	}
	defer func() {
		if releaseErr := s.lockService.Release(ctx, lockName); releaseErr != nil {
			logger.Warn("Failed to release attribute type lock",
				zap.Error(releaseErr),
				zap.String("code", attributeType.Code))
		}
	}()

	if err := s.deactivateDependentRules(ctx, attributeType.Code, organizationID); err != nil {
		logger.Error("Failed to deactivate dependent rules",
			zap.Error(err),
			zap.String("code", attributeType.Code))
		return err
	}

	if err := s.attributeTypeDAO.DeleteAttributeType(ctx, attributeTypeID, organizationID); err != nil {
		logger.Error("Error deleting attribute type", zap.Error(err), zap.String("attributeTypeID", attributeTypeID), zap.String("deleterID", deleterID))
		return err
	}

	if err := s.cacheService.DeleteAttributeType(ctx, attributeTypeID); err != nil {
		logger.Warn("Failed to delete attribute type from cache", zap.Error(err), zap.String("attributeTypeID", attributeTypeID))
	}

	s.eventBus.Publish(ctx, util.EventAttributeTypeDeleted, attributeType.Code)

	logger.Info("Attribute type deleted successfully",
		zap.String("attributeTypeID", attributeTypeID),
		zap.String("deleterID", deleterID))
	return nil
}

// GetAttributeType retrieves an attribute type by its ID
func (s *AttributeTypeService) GetAttributeType(ctx context.Context, attributeTypeID, organizationID string) (*model.AttributeType, error) {
	cached, err := s.cacheService.GetAttributeType(ctx, attributeTypeID)
	if err == nil && cached != nil && cached.OrganizationID == organizationID {
		return cached, nil
	}

	attributeType, err := s.attributeTypeDAO.GetAttributeType(ctx, attributeTypeID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrAttributeTypeNotFound) {
			return nil, aegis_errors.ErrAttributeTypeNotFound
		}
		logger.Error("Error retrieving attribute type", zap.Error(err), zap.String("attributeTypeID", attributeTypeID))
		return nil, aegis_errors.ErrInternalServer
	}

	if err := s.cacheService.SetAttributeType(ctx, *attributeType); err != nil {
		logger.Warn("Failed to cache attribute type", zap.Error(err), zap.String("attributeTypeID", attributeTypeID))
	}

	return attributeType, nil
}

// GetAttributeTypeByCode resolves an attribute type by its tenant-scoped code
func (s *AttributeTypeService) GetAttributeTypeByCode(ctx context.Context, code, organizationID string) (*model.AttributeType, error) {
	return s.attributeTypeDAO.GetAttributeTypeByCode(ctx, code, organizationID)
}

// ListAttributeTypes retrieves an organization's attribute types
func (s *AttributeTypeService) ListAttributeTypes(ctx context.Context, organizationID string, limit, offset int) ([]*model.AttributeType, error) {
	attributeTypes, err := s.attributeTypeDAO.ListAttributeTypes(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing attribute types", zap.Error(err), zap.String("organizationID", organizationID))
		return nil, fmt.Errorf("failed to list attribute types: %w", err)
	}

	return attributeTypes, nil
}

// deleteLockTTL bounds how long a crashed deletion can hold its lock.
const deleteLockTTL = 30 * time.Second

// deactivateDependentRules walks the organization's policies and deactivates
// every rule referencing the given attribute code.
func (s *AttributeTypeService) deactivateDependentRules(ctx context.Context, code, organizationID string) error {
	const pageSize = 100

	for offset := 0; ; offset += pageSize {
		policies, err := s.policyDAO.ListPolicies(ctx, organizationID, pageSize, offset)
		if err != nil {
			return err
		}
		if len(policies) == 0 {
			return nil
		}

		for _, policy := range policies {
			changed := false
			for i, rule := range policy.Rules {
				if rule.AttributeCode == code && rule.Active {
					policy.Rules[i].Active = false
					changed = true
				}
			}
			if !changed {
				continue
			}

			policy.UpdatedAt = time.Now()
			if _, err := s.policyDAO.UpdatePolicy(ctx, *policy); err != nil {
				return fmt.Errorf("failed to deactivate rules on policy %s: %w", policy.ID, err)
			}
			if err := s.cacheService.DeletePolicy(ctx, policy.ID); err != nil {
				logger.Warn("Failed to invalidate policy cache", zap.Error(err), zap.String("policyID", policy.ID))
			}
			logger.Info("Deactivated rules referencing attribute type",
				zap.String("policyID", policy.ID),
				zap.String("code", code))
		}

		if len(policies) < pageSize {
			return nil
		}
	}
}
