// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lumenhr/aegis/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

var _ audit.Service = (*MockAuditService)(nil)

func (m *MockAuditService) RecordDecision(ctx context.Context, entry audit.DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditService) QueryDecisions(ctx context.Context, filter audit.QueryFilter) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, filter)
	if logs := args.Get(0); logs != nil {
		return logs.([]audit.DecisionLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEnqueuer is a mock implementation of audit.Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

var _ audit.Enqueuer = (*MockEnqueuer)(nil)

func (m *MockEnqueuer) Enqueue(ctx context.Context, entry audit.DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

var _ audit.Repository = (*MockAuditRepository)(nil)

func (m *MockAuditRepository) IndexDecision(ctx context.Context, entry audit.DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) QueryDecisions(ctx context.Context, filter audit.QueryFilter) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, filter)
	if logs := args.Get(0); logs != nil {
		return logs.([]audit.DecisionLog), args.Error(1)
	}
	return nil, args.Error(1)
}
