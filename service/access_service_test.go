// api/service/access_service_test.go
package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/pdp/engine"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/test/mock"
)

func accessSubject() *model.User {
	return &model.User{
		ID:             "u-1",
		Email:          "rhea@example.com",
		OrganizationID: "org-1",
		Profile:        &model.EmployeeProfile{DepartmentID: "d-1", DepartmentName: "Engineering"},
	}
}

func grantedPolicy() *model.Policy {
	return &model.Policy{
		ID:             "p-1",
		Name:           "engineering-read",
		Effect:         model.EffectAllow,
		Priority:       10,
		Actions:        []string{"read"},
		Active:         true,
		OrganizationID: "org-1",
	}
}

// wireSource stubs the policy source with a single direct grant for u-1.
func wireSource(source *mock.MockPolicySource, policy *model.Policy) {
	grant := model.UserPolicy{
		ID:             "up-1",
		UserID:         "u-1",
		PolicyID:       policy.ID,
		Policy:         policy,
		Active:         true,
		OrganizationID: "org-1",
	}
	source.On("ActivePolicyIDs", tmock.Anything, "org-1").Return([]string{policy.ID}, nil)
	source.On("DirectPolicies", tmock.Anything, "u-1", "org-1").Return([]model.UserPolicy{grant}, nil)
	source.On("GroupPolicies", tmock.Anything, "org-1").Return(nil, nil)
	source.On("RoleAssignments", tmock.Anything, "u-1", "org-1").Return(nil, nil)
}

func TestEvaluateAccess(t *testing.T) {
	users := new(mock.MockUserService)
	source := new(mock.MockPolicySource)
	auditSvc := new(mock.MockAuditService)

	users.On("GetUser", tmock.Anything, "u-1").Return(accessSubject(), nil)
	wireSource(source, grantedPolicy())
	auditSvc.On("RecordDecision", tmock.Anything, tmock.AnythingOfType("audit.DecisionLog")).Return(nil)

	svc := service.NewAccessService(users, source, auditSvc)
	request := pdp_model.AccessRequest{ResourceType: "document", Action: "read"}

	decision, err := svc.EvaluateAccess(context.Background(), "u-1", "org-1", request)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "Allowed by policy: engineering-read", decision.Reason)
	auditSvc.AssertNumberOfCalls(t, "RecordDecision", 1)
}

func TestEvaluateAccessUnknownSubject(t *testing.T) {
	users := new(mock.MockUserService)
	source := new(mock.MockPolicySource)

	users.On("GetUser", tmock.Anything, "ghost").Return(nil, aegis_errors.ErrUserNotFound)

	svc := service.NewAccessService(users, source, new(mock.MockAuditService))
	request := pdp_model.AccessRequest{ResourceType: "document", Action: "read"}

	decision, err := svc.EvaluateAccess(context.Background(), "ghost", "org-1", request)

	assert.ErrorIs(t, err, aegis_errors.ErrUserNotFound)
	assert.Nil(t, decision)
	source.AssertNotCalled(t, "ActivePolicyIDs", tmock.Anything, tmock.Anything)
}

func TestEvaluateAccessMissingOrganization(t *testing.T) {
	users := new(mock.MockUserService)
	source := new(mock.MockPolicySource)

	users.On("GetUser", tmock.Anything, "u-1").Return(accessSubject(), nil)

	svc := service.NewAccessService(users, source, new(mock.MockAuditService))
	request := pdp_model.AccessRequest{ResourceType: "document", Action: "read"}

	decision, err := svc.EvaluateAccess(context.Background(), "u-1", "", request)

	assert.ErrorIs(t, err, aegis_errors.ErrMissingTenantContext)
	assert.Nil(t, decision)
	source.AssertNotCalled(t, "ActivePolicyIDs", tmock.Anything, tmock.Anything)
}

func TestEvaluateAccessWithAuditDisabled(t *testing.T) {
	users := new(mock.MockUserService)
	source := new(mock.MockPolicySource)
	auditSvc := new(mock.MockAuditService)

	users.On("GetUser", tmock.Anything, "u-1").Return(accessSubject(), nil)
	wireSource(source, grantedPolicy())

	svc := service.NewAccessService(users, source, auditSvc)
	request := pdp_model.AccessRequest{ResourceType: "document", Action: "read"}

	decision, err := svc.EvaluateAccess(context.Background(), "u-1", "org-1", request, engine.WithAuditDisabled())

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	auditSvc.AssertNotCalled(t, "RecordDecision", tmock.Anything, tmock.Anything)
}

func TestCheckAccess(t *testing.T) {
	users := new(mock.MockUserService)
	source := new(mock.MockPolicySource)
	auditSvc := new(mock.MockAuditService)

	users.On("GetUser", tmock.Anything, "u-1").Return(accessSubject(), nil)
	wireSource(source, grantedPolicy())
	auditSvc.On("RecordDecision", tmock.Anything, tmock.AnythingOfType("audit.DecisionLog")).Return(nil)

	svc := service.NewAccessService(users, source, auditSvc)

	allowed, err := svc.CheckAccess(context.Background(), "u-1", "org-1",
		pdp_model.AccessRequest{ResourceType: "document", Action: "read"})
	require.NoError(t, err)
	assert.True(t, allowed)

	// A policy scoped to another action leaves the request unmatched.
	denied, err := svc.CheckAccess(context.Background(), "u-1", "org-1",
		pdp_model.AccessRequest{ResourceType: "document", Action: "delete"})
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestQueryDecisionsRequiresOrganization(t *testing.T) {
	auditSvc := new(mock.MockAuditService)
	svc := service.NewAccessService(new(mock.MockUserService), new(mock.MockPolicySource), auditSvc)

	logs, err := svc.QueryDecisions(context.Background(), audit.QueryFilter{UserID: "u-1"})

	assert.ErrorIs(t, err, aegis_errors.ErrMissingTenantContext)
	assert.Nil(t, logs)
	auditSvc.AssertNotCalled(t, "QueryDecisions", tmock.Anything, tmock.Anything)
}

func TestQueryDecisionsDelegates(t *testing.T) {
	auditSvc := new(mock.MockAuditService)
	filter := audit.QueryFilter{OrganizationID: "org-1", Action: "read", Limit: 20}
	expected := []audit.DecisionLog{{
		ID:             "dec-1",
		OrganizationID: "org-1",
		UserID:         "u-1",
		Action:         "read",
		Result:         true,
		Timestamp:      time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC),
	}}

	auditSvc.On("QueryDecisions", tmock.Anything, filter).Return(expected, nil)

	svc := service.NewAccessService(new(mock.MockUserService), new(mock.MockPolicySource), auditSvc)
	logs, err := svc.QueryDecisions(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, expected, logs)
}
