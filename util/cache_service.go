// api/util/cache_service.go

package util

import (
	"context"

	"github.com/lumenhr/aegis/api/db"
	"github.com/lumenhr/aegis/api/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return db.GetCachedPolicy(ctx, policyID)
}

func (c *CacheService) SetPolicy(ctx context.Context, policy model.Policy) error {
	return db.CachePolicy(ctx, &policy)
}

func (c *CacheService) DeletePolicy(ctx context.Context, policyID string) error {
	return db.DeleteCachedPolicy(ctx, policyID)
}

func (c *CacheService) GetAttributeType(ctx context.Context, attributeTypeID string) (*model.AttributeType, error) {
	return db.GetCachedAttributeType(ctx, attributeTypeID)
}

func (c *CacheService) SetAttributeType(ctx context.Context, attributeType model.AttributeType) error {
	return db.CacheAttributeType(ctx, &attributeType)
}

func (c *CacheService) DeleteAttributeType(ctx context.Context, attributeTypeID string) error {
	return db.DeleteCachedAttributeType(ctx, attributeTypeID)
}

func (c *CacheService) SetUser(ctx context.Context, user model.User) error {
	return db.CacheUser(ctx, &user)
}

func (c *CacheService) DeleteUser(ctx context.Context, userID string) error {
	return db.DeleteCachedUser(ctx, userID)
}

func (c *CacheService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return db.GetCachedUser(ctx, userID)
}
