// api/pdp/engine/resolver_test.go
package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

var resolveNow = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

type mockPolicySource struct {
	mock.Mock
}

func (m *mockPolicySource) ActivePolicyIDs(ctx context.Context, organizationID string) ([]string, error) {
	args := m.Called(ctx, organizationID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPolicySource) DirectPolicies(ctx context.Context, userID, organizationID string) ([]model.UserPolicy, error) {
	args := m.Called(ctx, userID, organizationID)
	if grants := args.Get(0); grants != nil {
		return grants.([]model.UserPolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPolicySource) GroupPolicies(ctx context.Context, organizationID string) ([]model.GroupPolicy, error) {
	args := m.Called(ctx, organizationID)
	if groups := args.Get(0); groups != nil {
		return groups.([]model.GroupPolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPolicySource) RoleAssignments(ctx context.Context, userID, organizationID string) ([]model.RoleAssignment, error) {
	args := m.Called(ctx, userID, organizationID)
	if assignments := args.Get(0); assignments != nil {
		return assignments.([]model.RoleAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func engineerUser() *model.User {
	jobLevel := 4
	return &model.User{
		ID:             "u-1",
		Email:          "rhea@example.com",
		OrganizationID: "org-1",
		Profile: &model.EmployeeProfile{
			DepartmentID:   "d-1",
			DepartmentName: "Engineering",
			JobLevel:       &jobLevel,
			LocationName:   "Pune",
			EmploymentType: "full_time",
		},
	}
}

func readRequest() *pdp_model.AccessRequest {
	return &pdp_model.AccessRequest{
		ResourceType: "document",
		ResourceID:   "doc-7",
		Action:       "read",
	}
}

type sourceFixture struct {
	activeIDs   []string
	direct      []model.UserPolicy
	groups      []model.GroupPolicy
	assignments []model.RoleAssignment
}

func newSource(f sourceFixture) *mockPolicySource {
	source := new(mockPolicySource)
	source.On("ActivePolicyIDs", mock.Anything, "org-1").Return(f.activeIDs, nil)
	source.On("DirectPolicies", mock.Anything, "u-1", "org-1").Return(f.direct, nil)
	source.On("GroupPolicies", mock.Anything, "org-1").Return(f.groups, nil)
	source.On("RoleAssignments", mock.Anything, "u-1", "org-1").Return(f.assignments, nil)
	return source
}

func directGrant(policy *model.Policy) model.UserPolicy {
	return model.UserPolicy{
		ID:             "up-" + policy.ID,
		UserID:         "u-1",
		PolicyID:       policy.ID,
		Policy:         policy,
		Active:         true,
		OrganizationID: "org-1",
	}
}

func TestResolveEmptyOrganizationTouchesNoSource(t *testing.T) {
	source := new(mockPolicySource)
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "", readRequest(), resolveNow)

	require.NoError(t, err)
	assert.Nil(t, candidates)
	source.AssertNotCalled(t, "ActivePolicyIDs", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "DirectPolicies", mock.Anything, mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "GroupPolicies", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "RoleAssignments", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveDirectGrant(t *testing.T) {
	policy := allowPolicy("p-1", "grant-read")
	source := newSource(sourceFixture{
		activeIDs: []string{"p-1"},
		direct:    []model.UserPolicy{directGrant(policy)},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p-1", candidates[0].Policy.ID)
	assert.Equal(t, pdp_model.SourceDirect, candidates[0].Source)
	source.AssertExpectations(t)
}

// The active-id set is the tenant membership filter: a policy not owned by
// the requesting organization never becomes a candidate, even when a grant
// or group row carries it fully hydrated.
func TestResolveTenantMembershipFilter(t *testing.T) {
	foreign := allowPolicy("p-foreign", "other-tenant-policy")
	foreign.OrganizationID = "org-2"
	owned := allowPolicy("p-owned", "our-policy")

	group := model.GroupPolicy{
		ID:             "g-1",
		Name:           "engineering-group",
		GroupType:      model.GroupTypeDepartment,
		GroupValue:     "Engineering",
		Policies:       []model.Policy{*foreign},
		Active:         true,
		OrganizationID: "org-1",
	}

	source := newSource(sourceFixture{
		activeIDs: []string{"p-owned"},
		direct:    []model.UserPolicy{directGrant(foreign), directGrant(owned)},
		groups:    []model.GroupPolicy{group},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p-owned", candidates[0].Policy.ID)
}

func TestResolveDirectWinsDedup(t *testing.T) {
	policy := allowPolicy("p-1", "shared-policy")
	policy.Priority = 10

	override := 99
	grant := directGrant(policy)
	grant.PriorityOverride = &override

	role := &model.Role{
		ID:       "role-1",
		Name:     "viewer",
		Policies: []model.Policy{*policy},
		Active:   true,
	}
	assignment := model.RoleAssignment{
		ID:             "ra-1",
		UserID:         "u-1",
		RoleID:         role.ID,
		Role:           role,
		Active:         true,
		OrganizationID: "org-1",
	}

	source := newSource(sourceFixture{
		activeIDs:   []string{"p-1"},
		direct:      []model.UserPolicy{grant},
		assignments: []model.RoleAssignment{assignment},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, pdp_model.SourceDirect, candidates[0].Source)
	assert.Equal(t, 99, candidates[0].EffectivePriority)
}

func TestResolveOrdering(t *testing.T) {
	low := allowPolicy("p-low", "low")
	low.Priority = 1
	high := allowPolicy("p-high", "high")
	high.Priority = 50
	mid := allowPolicy("p-mid", "mid")
	mid.Priority = 10
	midToo := allowPolicy("p-mid-2", "mid-too")
	midToo.Priority = 10

	group := model.GroupPolicy{
		ID:             "g-1",
		GroupType:      model.GroupTypeDepartment,
		GroupValue:     "Engineering",
		Policies:       []model.Policy{*midToo},
		Active:         true,
		OrganizationID: "org-1",
	}

	source := newSource(sourceFixture{
		activeIDs: []string{"p-low", "p-high", "p-mid", "p-mid-2"},
		direct: []model.UserPolicy{
			directGrant(low),
			directGrant(high),
			directGrant(mid),
		},
		groups: []model.GroupPolicy{group},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, "p-high", candidates[0].Policy.ID)
	// Equal priorities keep source order: the direct grant was added before
	// the group policy.
	assert.Equal(t, "p-mid", candidates[1].Policy.ID)
	assert.Equal(t, "p-mid-2", candidates[2].Policy.ID)
	assert.Equal(t, "p-low", candidates[3].Policy.ID)
}

func TestResolveFiltersInvalidGrants(t *testing.T) {
	expired := allowPolicy("p-expired-grant", "expired-grant")
	until := resolveNow.Add(-time.Hour)
	expiredGrant := directGrant(expired)
	expiredGrant.ValidUntil = &until

	inactivePolicy := allowPolicy("p-inactive", "inactive-policy")
	inactivePolicy.Active = false

	wrongResource := allowPolicy("p-wrong-rt", "spreadsheet-only")
	wrongResource.ResourceType = "spreadsheet"

	wrongAction := allowPolicy("p-wrong-action", "write-only")
	wrongAction.Actions = []string{"write"}

	kept := allowPolicy("p-kept", "kept")

	source := newSource(sourceFixture{
		activeIDs: []string{"p-expired-grant", "p-inactive", "p-wrong-rt", "p-wrong-action", "p-kept"},
		direct: []model.UserPolicy{
			expiredGrant,
			directGrant(inactivePolicy),
			directGrant(wrongResource),
			directGrant(wrongAction),
			directGrant(kept),
		},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p-kept", candidates[0].Policy.ID)
}

func TestResolveGroupMatching(t *testing.T) {
	deptPolicy := allowPolicy("p-dept", "engineering-access")
	levelPolicy := allowPolicy("p-level", "level-four-access")
	salesPolicy := allowPolicy("p-sales", "sales-access")

	groups := []model.GroupPolicy{
		{
			ID:             "g-dept",
			GroupType:      model.GroupTypeDepartment,
			GroupValue:     "Engineering",
			Policies:       []model.Policy{*deptPolicy},
			Active:         true,
			OrganizationID: "org-1",
		},
		{
			// Job-level groups match the profile level rendered as text.
			ID:             "g-level",
			GroupType:      model.GroupTypeJobLevel,
			GroupValue:     "4",
			Policies:       []model.Policy{*levelPolicy},
			Active:         true,
			OrganizationID: "org-1",
		},
		{
			ID:             "g-sales",
			GroupType:      model.GroupTypeDepartment,
			GroupValue:     "Sales",
			Policies:       []model.Policy{*salesPolicy},
			Active:         true,
			OrganizationID: "org-1",
		},
	}

	source := newSource(sourceFixture{
		activeIDs: []string{"p-dept", "p-level", "p-sales"},
		groups:    groups,
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	ids := []string{candidates[0].Policy.ID, candidates[1].Policy.ID}
	assert.ElementsMatch(t, []string{"p-dept", "p-level"}, ids)
}

func TestResolveInactiveGroupSkipped(t *testing.T) {
	policy := allowPolicy("p-1", "engineering-access")
	group := model.GroupPolicy{
		ID:             "g-1",
		GroupType:      model.GroupTypeDepartment,
		GroupValue:     "Engineering",
		Policies:       []model.Policy{*policy},
		Active:         false,
		OrganizationID: "org-1",
	}

	source := newSource(sourceFixture{
		activeIDs: []string{"p-1"},
		groups:    []model.GroupPolicy{group},
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestResolveRoleAssignments(t *testing.T) {
	policy := allowPolicy("p-1", "auditor-access")
	activeRole := &model.Role{ID: "role-1", Name: "auditor", Policies: []model.Policy{*policy}, Active: true}

	droppedPolicy := allowPolicy("p-2", "stale-access")
	inactiveRole := &model.Role{ID: "role-2", Name: "legacy", Policies: []model.Policy{*droppedPolicy}, Active: false}

	until := resolveNow.Add(-time.Minute)
	assignments := []model.RoleAssignment{
		{ID: "ra-1", UserID: "u-1", RoleID: "role-1", Role: activeRole, Active: true, OrganizationID: "org-1"},
		{ID: "ra-2", UserID: "u-1", RoleID: "role-2", Role: inactiveRole, Active: true, OrganizationID: "org-1"},
		{ID: "ra-3", UserID: "u-1", RoleID: "role-1", Role: activeRole, Active: true, ValidUntil: &until, OrganizationID: "org-1"},
	}

	source := newSource(sourceFixture{
		activeIDs:   []string{"p-1", "p-2"},
		assignments: assignments,
	})
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p-1", candidates[0].Policy.ID)
	assert.Equal(t, pdp_model.SourceRole, candidates[0].Source)
}

func TestResolveSourceErrorPropagates(t *testing.T) {
	sourceErr := errors.New("connection reset")

	source := new(mockPolicySource)
	source.On("ActivePolicyIDs", mock.Anything, "org-1").Return(nil, sourceErr)
	source.On("DirectPolicies", mock.Anything, "u-1", "org-1").Return(nil, nil)
	source.On("GroupPolicies", mock.Anything, "org-1").Return(nil, nil)
	source.On("RoleAssignments", mock.Anything, "u-1", "org-1").Return(nil, nil)
	resolver := NewPolicyResolver(source)

	candidates, err := resolver.Resolve(context.Background(), engineerUser(), "org-1", readRequest(), resolveNow)

	assert.ErrorIs(t, err, sourceErr)
	assert.Nil(t, candidates)
}
