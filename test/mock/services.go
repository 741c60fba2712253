// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lumenhr/aegis/api/audit"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/pdp/engine"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
	"github.com/lumenhr/aegis/api/service"
)

// MockAccessService is a mock implementation of service.IAccessService
type MockAccessService struct {
	mock.Mock
}

var _ service.IAccessService = (*MockAccessService)(nil)

func (m *MockAccessService) EvaluateAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (*pdp_model.PolicyDecision, error) {
	args := m.Called(ctx, subjectID, organizationID, request, opts)
	if decision := args.Get(0); decision != nil {
		return decision.(*pdp_model.PolicyDecision), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccessService) CheckAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (bool, error) {
	args := m.Called(ctx, subjectID, organizationID, request, opts)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) QueryDecisions(ctx context.Context, filter audit.QueryFilter) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, filter)
	if logs := args.Get(0); logs != nil {
		return logs.([]audit.DecisionLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPolicyService is a mock implementation of service.IPolicyService
type MockPolicyService struct {
	mock.Mock
}

var _ service.IPolicyService = (*MockPolicyService)(nil)

func (m *MockPolicyService) CreatePolicy(ctx context.Context, policy model.Policy, creatorID string) (*model.Policy, error) {
	args := m.Called(ctx, policy, creatorID)
	if created := args.Get(0); created != nil {
		return created.(*model.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, updaterID string) (*model.Policy, error) {
	args := m.Called(ctx, policy, updaterID)
	if updated := args.Get(0); updated != nil {
		return updated.(*model.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyService) DeactivatePolicy(ctx context.Context, policyID, organizationID, updaterID string) error {
	args := m.Called(ctx, policyID, organizationID, updaterID)
	return args.Error(0)
}

func (m *MockPolicyService) DeletePolicy(ctx context.Context, policyID, organizationID, deleterID string) error {
	args := m.Called(ctx, policyID, organizationID, deleterID)
	return args.Error(0)
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, policyID, organizationID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID, organizationID)
	if policy := args.Get(0); policy != nil {
		return policy.(*model.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyService) ListPolicies(ctx context.Context, organizationID string, limit, offset int) ([]*model.Policy, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if policies := args.Get(0); policies != nil {
		return policies.([]*model.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyService) SearchPolicies(ctx context.Context, organizationID string, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	args := m.Called(ctx, organizationID, criteria)
	if policies := args.Get(0); policies != nil {
		return policies.([]*model.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, creatorID string) ([]string, error) {
	args := m.Called(ctx, policies, creatorID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserService is a mock implementation of service.IUserService
type MockUserService struct {
	mock.Mock
}

var _ service.IUserService = (*MockUserService)(nil)

func (m *MockUserService) CreateUser(ctx context.Context, user model.User, creatorID string) (*model.User, error) {
	args := m.Called(ctx, user, creatorID)
	if created := args.Get(0); created != nil {
		return created.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, user model.User, updaterID string) (*model.User, error) {
	args := m.Called(ctx, user, updaterID)
	if updated := args.Get(0); updated != nil {
		return updated.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID string, deleterID string) error {
	args := m.Called(ctx, userID, deleterID)
	return args.Error(0)
}

func (m *MockUserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if user := args.Get(0); user != nil {
		return user.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, organizationID string, limit int, offset int) ([]*model.User, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if users := args.Get(0); users != nil {
		return users.([]*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error) {
	args := m.Called(ctx, criteria)
	if users := args.Get(0); users != nil {
		return users.([]*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}
