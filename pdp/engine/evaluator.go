// api/pdp/engine/evaluator.go
package engine

import (
	"strings"
	"time"

	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

// Aggregation reasons reported on decisions
const (
	ReasonNoApplicablePolicies = "No applicable policies found"
	ReasonNoMatchingRules      = "No matching policy rules"
	reasonDeniedPrefix         = "Denied by policy: "
	reasonAllowedPrefix        = "Allowed by policy: "
)

type PolicyEvaluator struct{}

func NewPolicyEvaluator() *PolicyEvaluator {
	return &PolicyEvaluator{}
}

// EvaluatePolicy reports whether the policy matches the input. A policy with
// no active rules matches unconditionally; otherwise its rule results fold
// per the policy's combine logic.
func (pe *PolicyEvaluator) EvaluatePolicy(policy *model.Policy, input *EvaluationInput, now time.Time) bool {
	if !policy.IsCurrentlyActive(now) {
		return false
	}
	if !policy.AppliesToAction(input.Action) {
		return false
	}

	rules := policy.ActiveRules()
	if len(rules) == 0 {
		return true
	}

	switch policy.CombineLogic {
	case model.CombineOR:
		for _, rule := range rules {
			if EvaluateRule(rule, input) {
				return true
			}
		}
		return false
	default:
		// AND is the default combine logic
		for _, rule := range rules {
			if !EvaluateRule(rule, input) {
				return false
			}
		}
		return true
	}
}

// Aggregate folds the candidate policies into a single decision with
// deny-overrides-allow semantics. Every candidate is evaluated and recorded;
// only matched policies contribute to the outcome.
func (pe *PolicyEvaluator) Aggregate(candidates []pdp_model.CandidatePolicy, input *EvaluationInput, now time.Time) *pdp_model.PolicyDecision {
	decision := &pdp_model.PolicyDecision{
		EvaluatedPolicies: make([]string, 0, len(candidates)),
	}

	if len(candidates) == 0 {
		decision.Reason = ReasonNoApplicablePolicies
		return decision
	}

	var allowedBy, deniedBy []string
	for _, candidate := range candidates {
		policy := candidate.Policy
		decision.EvaluatedPolicies = append(decision.EvaluatedPolicies, policy.ID)

		matched := pe.EvaluatePolicy(policy, input, now)
		logger.Debug("Evaluated policy",
			zap.String("policyID", policy.ID),
			zap.String("effect", policy.Effect),
			zap.String("source", candidate.Source),
			zap.Bool("matched", matched))
		if !matched {
			continue
		}

		if policy.Effect == model.EffectDeny {
			deniedBy = append(deniedBy, policy.Name)
		} else {
			allowedBy = append(allowedBy, policy.Name)
		}
	}

	switch {
	case len(deniedBy) > 0:
		decision.Allowed = false
		decision.Reason = reasonDeniedPrefix + strings.Join(deniedBy, ", ")
	case len(allowedBy) > 0:
		decision.Allowed = true
		decision.Reason = reasonAllowedPrefix + strings.Join(allowedBy, ", ")
	default:
		decision.Allowed = false
		decision.Reason = ReasonNoMatchingRules
	}

	return decision
}
