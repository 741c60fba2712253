// api/pdp/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/model"
)

type mockDecisionRecorder struct {
	mock.Mock
}

func (m *mockDecisionRecorder) RecordDecision(ctx context.Context, entry audit.DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func pinnedClock() func() time.Time {
	return func() time.Time { return evalNow }
}

// capturingRecorder returns a recorder that accepts every entry and stores
// the last one it saw.
func capturingRecorder(captured *audit.DecisionLog) *mockDecisionRecorder {
	recorder := new(mockDecisionRecorder)
	recorder.On("RecordDecision", mock.Anything, mock.AnythingOfType("audit.DecisionLog")).
		Run(func(args mock.Arguments) { *captured = args.Get(1).(audit.DecisionLog) }).
		Return(nil)
	return recorder
}

func TestNewPolicyEngineRequiresUser(t *testing.T) {
	_, err := NewPolicyEngine(nil, "org-1", new(mockPolicySource), nil)
	assert.ErrorIs(t, err, aegis_errors.ErrInvalidUserData)
}

func TestNewPolicyEngineMissingTenantIsFatal(t *testing.T) {
	source := new(mockPolicySource)

	eng, err := NewPolicyEngine(engineerUser(), "", source, nil)

	assert.ErrorIs(t, err, aegis_errors.ErrMissingTenantContext)
	assert.Nil(t, eng)
	source.AssertNotCalled(t, "ActivePolicyIDs", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "DirectPolicies", mock.Anything, mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "GroupPolicies", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "RoleAssignments", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewPolicyEngineSuperuserWithoutTenant(t *testing.T) {
	superuser := &model.User{ID: "u-root", Email: "ops@platform.example.com", IsSuperuser: true}
	source := new(mockPolicySource)

	eng, err := NewPolicyEngine(superuser, "", source, nil, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "Superuser bypass", decision.Reason)
}

func TestEvaluateSuperuserBypass(t *testing.T) {
	superuser := engineerUser()
	superuser.IsSuperuser = true
	source := new(mockPolicySource)
	var recorded audit.DecisionLog
	recorder := capturingRecorder(&recorded)

	eng, err := NewPolicyEngine(superuser, "org-1", source, recorder, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "Superuser bypass", decision.Reason)
	assert.Empty(t, decision.EvaluatedPolicies)
	// The bypass skips policy resolution entirely.
	source.AssertNotCalled(t, "ActivePolicyIDs", mock.Anything, mock.Anything)

	// But the decision is still audited.
	recorder.AssertNumberOfCalls(t, "RecordDecision", 1)
	assert.True(t, recorded.Result)
	assert.Equal(t, "Superuser bypass", recorded.Reason)
	assert.Equal(t, "org-1", recorded.OrganizationID)
}

func TestEvaluateOrgAdminBypassOwnOrgOnly(t *testing.T) {
	admin := engineerUser()
	admin.IsOrgAdmin = true

	t.Run("own organization", func(t *testing.T) {
		source := new(mockPolicySource)
		eng, err := NewPolicyEngine(admin, "org-1", source, nil, WithClock(pinnedClock()))
		require.NoError(t, err)

		decision, err := eng.Evaluate(context.Background(), readRequest())

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, "Org admin bypass", decision.Reason)
		source.AssertNotCalled(t, "ActivePolicyIDs", mock.Anything, mock.Anything)
	})

	t.Run("foreign organization", func(t *testing.T) {
		source := new(mockPolicySource)
		source.On("ActivePolicyIDs", mock.Anything, "org-2").Return([]string{}, nil)
		source.On("DirectPolicies", mock.Anything, "u-1", "org-2").Return(nil, nil)
		source.On("GroupPolicies", mock.Anything, "org-2").Return(nil, nil)
		source.On("RoleAssignments", mock.Anything, "u-1", "org-2").Return(nil, nil)

		eng, err := NewPolicyEngine(admin, "org-2", source, nil, WithClock(pinnedClock()))
		require.NoError(t, err)

		decision, err := eng.Evaluate(context.Background(), readRequest())

		// Admin standing does not cross tenants; the request falls through
		// to ordinary resolution.
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "No applicable policies found", decision.Reason)
		source.AssertExpectations(t)
	})
}

func TestEvaluateAllowedThroughPolicies(t *testing.T) {
	policy := allowPolicy("p-1", "engineering-read", departmentRule("Engineering"))
	source := newSource(sourceFixture{
		activeIDs: []string{"p-1"},
		direct:    []model.UserPolicy{directGrant(policy)},
	})
	var recorded audit.DecisionLog
	recorder := capturingRecorder(&recorded)

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, recorder, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "Allowed by policy: engineering-read", decision.Reason)
	assert.Equal(t, []string{"p-1"}, decision.EvaluatedPolicies)

	assert.Equal(t, "u-1", recorded.UserID)
	assert.Equal(t, "org-1", recorded.OrganizationID)
	assert.Equal(t, "p-1", recorded.PolicyID)
	assert.Equal(t, "document", recorded.ResourceType)
	assert.Equal(t, "read", recorded.Action)
	assert.True(t, recorded.Result)
	assert.Equal(t, evalNow, recorded.Timestamp)
	assert.NotEmpty(t, recorded.ID)
}

func TestEvaluateDenyRecorded(t *testing.T) {
	policy := denyPolicy("p-1", "lockdown")
	source := newSource(sourceFixture{
		activeIDs: []string{"p-1"},
		direct:    []model.UserPolicy{directGrant(policy)},
	})
	var recorded audit.DecisionLog
	recorder := capturingRecorder(&recorded)

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, recorder, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "Denied by policy: lockdown", decision.Reason)
	assert.False(t, recorded.Result)
	assert.Equal(t, "Denied by policy: lockdown", recorded.Reason)
}

func TestEvaluateAuditDisabled(t *testing.T) {
	source := newSource(sourceFixture{activeIDs: []string{}})
	recorder := new(mockDecisionRecorder)

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, recorder,
		WithClock(pinnedClock()), WithAuditDisabled())
	require.NoError(t, err)

	_, err = eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	recorder.AssertNotCalled(t, "RecordDecision", mock.Anything, mock.Anything)
}

func TestEvaluateRecorderFailureDoesNotFailDecision(t *testing.T) {
	source := newSource(sourceFixture{activeIDs: []string{}})
	recorder := new(mockDecisionRecorder)
	recorder.On("RecordDecision", mock.Anything, mock.AnythingOfType("audit.DecisionLog")).
		Return(errors.New("audit store unavailable"))

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, recorder, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	require.NoError(t, err)
	assert.Equal(t, "No applicable policies found", decision.Reason)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	matched := allowPolicy("p-1", "engineering-read", departmentRule("Engineering"))
	unmatched := allowPolicy("p-2", "sales-read", departmentRule("Sales"))
	source := newSource(sourceFixture{
		activeIDs: []string{"p-1", "p-2"},
		direct:    []model.UserPolicy{directGrant(matched), directGrant(unmatched)},
	})

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, nil, WithClock(pinnedClock()))
	require.NoError(t, err)

	first, err := eng.Evaluate(context.Background(), readRequest())
	require.NoError(t, err)
	second, err := eng.Evaluate(context.Background(), readRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Allowed, second.Allowed)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.EvaluatedPolicies, second.EvaluatedPolicies)
}

func TestEvaluateResolutionErrorPropagates(t *testing.T) {
	sourceErr := errors.New("neo4j unavailable")
	source := new(mockPolicySource)
	source.On("ActivePolicyIDs", mock.Anything, "org-1").Return(nil, sourceErr)
	source.On("DirectPolicies", mock.Anything, "u-1", "org-1").Return(nil, nil)
	source.On("GroupPolicies", mock.Anything, "org-1").Return(nil, nil)
	source.On("RoleAssignments", mock.Anything, "u-1", "org-1").Return(nil, nil)
	recorder := new(mockDecisionRecorder)

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, recorder, WithClock(pinnedClock()))
	require.NoError(t, err)

	decision, err := eng.Evaluate(context.Background(), readRequest())

	assert.ErrorIs(t, err, sourceErr)
	assert.Nil(t, decision)
	recorder.AssertNotCalled(t, "RecordDecision", mock.Anything, mock.Anything)
}

func TestCheckAccess(t *testing.T) {
	policy := allowPolicy("p-1", "engineering-read", departmentRule("Engineering"))
	source := newSource(sourceFixture{
		activeIDs: []string{"p-1"},
		direct:    []model.UserPolicy{directGrant(policy)},
	})

	eng, err := NewPolicyEngine(engineerUser(), "org-1", source, nil, WithClock(pinnedClock()))
	require.NoError(t, err)
	assert.True(t, eng.CheckAccess(context.Background(), readRequest()))

	// Evaluation failure denies.
	failing := new(mockPolicySource)
	failing.On("ActivePolicyIDs", mock.Anything, "org-1").Return(nil, errors.New("timeout"))
	failing.On("DirectPolicies", mock.Anything, "u-1", "org-1").Return(nil, nil)
	failing.On("GroupPolicies", mock.Anything, "org-1").Return(nil, nil)
	failing.On("RoleAssignments", mock.Anything, "u-1", "org-1").Return(nil, nil)

	denied, err := NewPolicyEngine(engineerUser(), "org-1", failing, nil, WithClock(pinnedClock()))
	require.NoError(t, err)
	assert.False(t, denied.CheckAccess(context.Background(), readRequest()))
}
