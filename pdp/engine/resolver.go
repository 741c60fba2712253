// api/pdp/engine/resolver.go
package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

// PolicySource is the read surface the resolver pulls candidate policies
// from. Every query is tenant-scoped; implementations must never return
// rows from another organization.
type PolicySource interface {
	// ActivePolicyIDs returns the ids of every active policy owned by the
	// organization. The set is the authoritative tenant membership filter.
	ActivePolicyIDs(ctx context.Context, organizationID string) ([]string, error)

	// DirectPolicies returns the user's direct policy grants with their
	// policies hydrated.
	DirectPolicies(ctx context.Context, userID, organizationID string) ([]model.UserPolicy, error)

	// GroupPolicies returns the organization's policy groups with their
	// granted policies hydrated.
	GroupPolicies(ctx context.Context, organizationID string) ([]model.GroupPolicy, error)

	// RoleAssignments returns the user's role assignments with roles and
	// granted policies hydrated.
	RoleAssignments(ctx context.Context, userID, organizationID string) ([]model.RoleAssignment, error)
}

// PolicyResolver gathers, deduplicates and orders the policies that apply to
// one subject and request.
type PolicyResolver struct {
	source PolicySource
}

func NewPolicyResolver(source PolicySource) *PolicyResolver {
	return &PolicyResolver{source: source}
}

// Resolve returns the request's candidate policies in evaluation order:
// effective priority descending, stable within equal priorities. An empty
// organization id yields no candidates and touches no source.
func (pr *PolicyResolver) Resolve(ctx context.Context, user *model.User, organizationID string, request *pdp_model.AccessRequest, now time.Time) ([]pdp_model.CandidatePolicy, error) {
	if organizationID == "" {
		return nil, nil
	}

	start := time.Now()

	var (
		activeIDs   []string
		direct      []model.UserPolicy
		groups      []model.GroupPolicy
		assignments []model.RoleAssignment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activeIDs, err = pr.source.ActivePolicyIDs(gctx, organizationID)
		return err
	})
	g.Go(func() error {
		var err error
		direct, err = pr.source.DirectPolicies(gctx, user.ID, organizationID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = pr.source.GroupPolicies(gctx, organizationID)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = pr.source.RoleAssignments(gctx, user.ID, organizationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tenantPolicies := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		tenantPolicies[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var candidates []pdp_model.CandidatePolicy

	add := func(policy *model.Policy, priority int, source string) {
		if policy == nil || policy.ID == "" {
			return
		}
		if _, dup := seen[policy.ID]; dup {
			return
		}
		if _, owned := tenantPolicies[policy.ID]; !owned {
			return
		}
		if !policy.IsCurrentlyActive(now) {
			return
		}
		if !policy.AppliesToResource(request.ResourceType, request.ResourceID) || !policy.AppliesToAction(request.Action) {
			return
		}
		seen[policy.ID] = struct{}{}
		candidates = append(candidates, pdp_model.CandidatePolicy{
			Policy:            policy,
			EffectivePriority: priority,
			Source:            source,
		})
	}

	// Direct grants first: a user-level priority override must win the dedup.
	for i := range direct {
		grant := &direct[i]
		if !grant.IsCurrentlyValid(now) || grant.Policy == nil {
			continue
		}
		add(grant.Policy, grant.EffectivePriority(), pdp_model.SourceDirect)
	}

	for i := range groups {
		group := &groups[i]
		if !group.Active {
			continue
		}
		value, ok := GroupMatchValue(user, group.GroupType)
		if !ok || value != group.GroupValue {
			continue
		}
		for j := range group.Policies {
			add(&group.Policies[j], group.Policies[j].Priority, pdp_model.SourceGroup)
		}
	}

	for i := range assignments {
		assignment := &assignments[i]
		if !assignment.IsCurrentlyValid(now) || assignment.Role == nil || !assignment.Role.Active {
			continue
		}
		role := assignment.Role
		for j := range role.Policies {
			add(&role.Policies[j], role.Policies[j].Priority, pdp_model.SourceRole)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EffectivePriority > candidates[j].EffectivePriority
	})

	logger.Debug("Resolved candidate policies",
		zap.String("userID", user.ID),
		zap.String("organizationID", organizationID),
		zap.Int("candidates", len(candidates)),
		zap.Duration("duration", time.Since(start)))

	return candidates, nil
}
