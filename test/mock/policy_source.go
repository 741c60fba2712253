// test/mock/policy_source.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/pdp/engine"
)

// MockPolicySource is a mock implementation of engine.PolicySource
type MockPolicySource struct {
	mock.Mock
}

var _ engine.PolicySource = (*MockPolicySource)(nil)

func (m *MockPolicySource) ActivePolicyIDs(ctx context.Context, organizationID string) ([]string, error) {
	args := m.Called(ctx, organizationID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicySource) DirectPolicies(ctx context.Context, userID, organizationID string) ([]model.UserPolicy, error) {
	args := m.Called(ctx, userID, organizationID)
	if grants := args.Get(0); grants != nil {
		return grants.([]model.UserPolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicySource) GroupPolicies(ctx context.Context, organizationID string) ([]model.GroupPolicy, error) {
	args := m.Called(ctx, organizationID)
	if groups := args.Get(0); groups != nil {
		return groups.([]model.GroupPolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicySource) RoleAssignments(ctx context.Context, userID, organizationID string) ([]model.RoleAssignment, error) {
	args := m.Called(ctx, userID, organizationID)
	if assignments := args.Get(0); assignments != nil {
		return assignments.([]model.RoleAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}
