package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/pdp/engine"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

// IAccessService answers access questions and serves the decision trail
type IAccessService interface {
	EvaluateAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (*pdp_model.PolicyDecision, error)
	CheckAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (bool, error)
	QueryDecisions(ctx context.Context, filter audit.QueryFilter) ([]audit.DecisionLog, error)
}

// AccessService builds a policy engine per request. Engines are cheap; the
// subject, tenant and per-call options differ on every evaluation.
type AccessService struct {
	userService  IUserService
	source       engine.PolicySource
	auditService audit.Service
}

var _ IAccessService = &AccessService{}

// NewAccessService creates a new instance of AccessService
func NewAccessService(userService IUserService, source engine.PolicySource, auditService audit.Service) *AccessService {
	return &AccessService{
		userService:  userService,
		source:       source,
		auditService: auditService,
	}
}

// EvaluateAccess loads the subject and runs one evaluation
func (s *AccessService) EvaluateAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (*pdp_model.PolicyDecision, error) {
	start := time.Now()

	user, err := s.userService.GetUser(ctx, subjectID)
	if err != nil {
		logger.Error("Failed to load subject for evaluation",
			zap.String("subjectID", subjectID),
			zap.Error(err))
		return nil, err
	}

	eng, err := engine.NewPolicyEngine(user, organizationID, s.source, s.auditService, opts...)
	if err != nil {
		return nil, err
	}

	decision, err := eng.Evaluate(ctx, &request)
	if err != nil {
		return nil, err
	}

	logger.Debug("Access evaluation served",
		zap.String("subjectID", subjectID),
		zap.String("organizationID", organizationID),
		zap.Bool("allowed", decision.Allowed),
		zap.Duration("duration", time.Since(start)))

	return decision, nil
}

// CheckAccess is the boolean projection of EvaluateAccess. Subject lookup
// failure denies; evaluation failure denies.
func (s *AccessService) CheckAccess(ctx context.Context, subjectID, organizationID string, request pdp_model.AccessRequest, opts ...engine.Option) (bool, error) {
	decision, err := s.EvaluateAccess(ctx, subjectID, organizationID, request, opts...)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// QueryDecisions retrieves logged decisions. The organization filter is
// mandatory: the decision trail is tenant data like everything else.
func (s *AccessService) QueryDecisions(ctx context.Context, filter audit.QueryFilter) ([]audit.DecisionLog, error) {
	if filter.OrganizationID == "" {
		return nil, aegis_errors.ErrMissingTenantContext
	}
	return s.auditService.QueryDecisions(ctx, filter)
}
