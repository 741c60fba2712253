// api/pdp/engine/engine.go
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

// Bypass reasons reported on decisions
const (
	ReasonSuperuserBypass = "Superuser bypass"
	ReasonOrgAdminBypass  = "Org admin bypass"
)

// DecisionRecorder receives the audit record of every evaluation.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, entry audit.DecisionLog) error
}

// PolicyEngine answers access questions for one subject inside one tenant.
// Instances are cheap and constructed per request.
type PolicyEngine struct {
	user           *model.User
	organizationID string
	resolver       *PolicyResolver
	evaluator      *PolicyEvaluator
	recorder       DecisionRecorder
	auditDisabled  bool
	clock          func() time.Time
}

type Option func(*PolicyEngine)

// WithAuditDisabled suppresses decision logging for this engine instance.
// Used when evaluation happens inside another permission check that already
// owns the audit record.
func WithAuditDisabled() Option {
	return func(e *PolicyEngine) { e.auditDisabled = true }
}

// WithClock pins the engine's notion of now.
func WithClock(clock func() time.Time) Option {
	return func(e *PolicyEngine) { e.clock = clock }
}

// NewPolicyEngine builds an engine for the subject in the given tenant. A
// missing tenant is fatal before any policy lookup unless the subject is a
// platform superuser.
func NewPolicyEngine(user *model.User, organizationID string, source PolicySource, recorder DecisionRecorder, opts ...Option) (*PolicyEngine, error) {
	if user == nil {
		return nil, aegis_errors.ErrInvalidUserData
	}
	if organizationID == "" && !user.IsSuperuser {
		logger.Error("Policy engine requested without tenant context", zap.String("userID", user.ID))
		return nil, aegis_errors.ErrMissingTenantContext
	}

	e := &PolicyEngine{
		user:           user,
		organizationID: organizationID,
		resolver:       NewPolicyResolver(source),
		evaluator:      NewPolicyEvaluator(),
		recorder:       recorder,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate answers one access request. The returned error is reserved for
// data-source failures; every policy outcome, including denial, arrives as a
// decision.
func (e *PolicyEngine) Evaluate(ctx context.Context, request *pdp_model.AccessRequest) (*pdp_model.PolicyDecision, error) {
	start := time.Now()
	now := e.clock()

	decision := &pdp_model.PolicyDecision{
		ResourceType:          request.ResourceType,
		ResourceID:            request.ResourceID,
		Action:                request.Action,
		SubjectAttributes:     SubjectAttributes(e.user),
		ResourceAttributes:    request.ResourceAttributes,
		EnvironmentAttributes: EnvironmentAttributes(now),
		EvaluatedPolicies:     []string{},
	}

	switch {
	case e.user.IsSuperuser:
		decision.Allowed = true
		decision.Reason = ReasonSuperuserBypass
	case e.user.IsOrgAdmin && e.user.OrganizationID == e.organizationID:
		decision.Allowed = true
		decision.Reason = ReasonOrgAdminBypass
	default:
		candidates, err := e.resolver.Resolve(ctx, e.user, e.organizationID, request, now)
		if err != nil {
			logger.Error("Policy resolution failed",
				zap.String("userID", e.user.ID),
				zap.String("organizationID", e.organizationID),
				zap.Error(err))
			return nil, err
		}

		input := &EvaluationInput{
			Subject:     decision.SubjectAttributes,
			Resource:    request.ResourceAttributes,
			Environment: decision.EnvironmentAttributes,
			Action:      request.Action,
		}
		aggregated := e.evaluator.Aggregate(candidates, input, now)
		decision.Allowed = aggregated.Allowed
		decision.Reason = aggregated.Reason
		decision.EvaluatedPolicies = aggregated.EvaluatedPolicies
	}

	e.recordDecision(ctx, decision, now)

	logger.Info("Access evaluated",
		zap.String("userID", e.user.ID),
		zap.String("resourceType", request.ResourceType),
		zap.String("action", request.Action),
		zap.Bool("allowed", decision.Allowed),
		zap.Duration("duration", time.Since(start)))

	return decision, nil
}

// CheckAccess is the boolean projection of Evaluate. Evaluation failure
// denies.
func (e *PolicyEngine) CheckAccess(ctx context.Context, request *pdp_model.AccessRequest) bool {
	decision, err := e.Evaluate(ctx, request)
	if err != nil {
		logger.Error("Access check failed, denying", zap.Error(err))
		return false
	}
	return decision.Allowed
}

func (e *PolicyEngine) recordDecision(ctx context.Context, decision *pdp_model.PolicyDecision, now time.Time) {
	if e.auditDisabled || e.recorder == nil {
		return
	}

	entry := audit.DecisionLog{
		ID:                    uuid.New().String(),
		OrganizationID:        e.organizationID,
		UserID:                e.user.ID,
		ResourceType:          decision.ResourceType,
		ResourceID:            decision.ResourceID,
		Action:                decision.Action,
		Result:                decision.Allowed,
		SubjectAttributes:     decision.SubjectAttributes,
		ResourceAttributes:    decision.ResourceAttributes,
		EnvironmentAttributes: decision.EnvironmentAttributes,
		EvaluatedPolicies:     decision.EvaluatedPolicies,
		Reason:                decision.Reason,
		Timestamp:             now,
	}
	if entry.OrganizationID == "" {
		entry.OrganizationID = e.user.OrganizationID
	}
	if len(decision.EvaluatedPolicies) > 0 {
		entry.PolicyID = decision.EvaluatedPolicies[0]
	}

	if err := e.recorder.RecordDecision(ctx, entry); err != nil {
		logger.Error("Failed to record policy decision",
			zap.String("decisionID", entry.ID), zap.Error(err))
	}
}
