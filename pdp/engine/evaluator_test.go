// api/pdp/engine/evaluator_test.go
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

var evalNow = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

func allowPolicy(id, name string, rules ...model.PolicyRule) *model.Policy {
	return &model.Policy{
		ID:             id,
		Name:           name,
		Effect:         model.EffectAllow,
		Priority:       10,
		Active:         true,
		OrganizationID: "org-1",
		Rules:          rules,
	}
}

func denyPolicy(id, name string, rules ...model.PolicyRule) *model.Policy {
	p := allowPolicy(id, name, rules...)
	p.Effect = model.EffectDeny
	return p
}

func departmentRule(department string) model.PolicyRule {
	return model.PolicyRule{
		ID:                "r-dept",
		AttributeCategory: model.CategorySubject,
		AttributeCode:     "department",
		AttributePath:     "department.name",
		Operator:          model.OpEquals,
		Value:             department,
		Active:            true,
	}
}

func candidates(policies ...*model.Policy) []pdp_model.CandidatePolicy {
	out := make([]pdp_model.CandidatePolicy, 0, len(policies))
	for _, p := range policies {
		out = append(out, pdp_model.CandidatePolicy{
			Policy:            p,
			EffectivePriority: p.Priority,
			Source:            pdp_model.SourceDirect,
		})
	}
	return out
}

func TestEvaluatePolicyVacuousMatch(t *testing.T) {
	evaluator := NewPolicyEvaluator()
	input := evaluationInput()

	noRules := allowPolicy("p-1", "open-door")
	assert.True(t, evaluator.EvaluatePolicy(noRules, input, evalNow))

	// Rules that are all inactive leave nothing to evaluate, so the policy
	// still matches vacuously.
	inactiveRule := departmentRule("Sales")
	inactiveRule.Active = false
	onlyInactive := allowPolicy("p-2", "dormant-rules", inactiveRule)
	assert.True(t, evaluator.EvaluatePolicy(onlyInactive, input, evalNow))
}

func TestEvaluatePolicyCombineLogic(t *testing.T) {
	evaluator := NewPolicyEvaluator()
	input := evaluationInput()

	match := departmentRule("Engineering")
	noMatch := departmentRule("Sales")

	and := allowPolicy("p-and", "and-policy", match, noMatch)
	and.CombineLogic = model.CombineAND
	assert.False(t, evaluator.EvaluatePolicy(and, input, evalNow))

	or := allowPolicy("p-or", "or-policy", match, noMatch)
	or.CombineLogic = model.CombineOR
	assert.True(t, evaluator.EvaluatePolicy(or, input, evalNow))

	// Unset combine logic behaves as AND.
	unset := allowPolicy("p-unset", "unset-policy", match, noMatch)
	assert.False(t, evaluator.EvaluatePolicy(unset, input, evalNow))

	allMatch := allowPolicy("p-all", "all-policy", match, departmentRule("Engineering"))
	assert.True(t, evaluator.EvaluatePolicy(allMatch, input, evalNow))
}

func TestEvaluatePolicyScopeFilters(t *testing.T) {
	evaluator := NewPolicyEvaluator()
	input := evaluationInput()

	inactive := allowPolicy("p-i", "inactive")
	inactive.Active = false
	assert.False(t, evaluator.EvaluatePolicy(inactive, input, evalNow))

	expired := allowPolicy("p-e", "expired")
	until := evalNow.Add(-time.Hour)
	expired.ValidUntil = &until
	assert.False(t, evaluator.EvaluatePolicy(expired, input, evalNow))

	notYet := allowPolicy("p-n", "not-yet")
	from := evalNow.Add(time.Hour)
	notYet.ValidFrom = &from
	assert.False(t, evaluator.EvaluatePolicy(notYet, input, evalNow))

	wrongAction := allowPolicy("p-a", "write-only")
	wrongAction.Actions = []string{"write"}
	assert.False(t, evaluator.EvaluatePolicy(wrongAction, input, evalNow))

	rightAction := allowPolicy("p-r", "read-write")
	rightAction.Actions = []string{"read", "write"}
	assert.True(t, evaluator.EvaluatePolicy(rightAction, input, evalNow))
}

func TestAggregateNoCandidates(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	decision := evaluator.Aggregate(nil, evaluationInput(), evalNow)

	assert.False(t, decision.Allowed)
	assert.Equal(t, "No applicable policies found", decision.Reason)
	assert.Empty(t, decision.EvaluatedPolicies)
}

func TestAggregateDenyOverridesAllow(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	allow := allowPolicy("p-allow", "grant-read")
	allow.Priority = 100
	deny := denyPolicy("p-deny", "block-read")
	deny.Priority = 1

	decision := evaluator.Aggregate(candidates(allow, deny), evaluationInput(), evalNow)

	assert.False(t, decision.Allowed)
	assert.Equal(t, "Denied by policy: block-read", decision.Reason)
	assert.Equal(t, []string{"p-allow", "p-deny"}, decision.EvaluatedPolicies)
}

func TestAggregateMultipleDenies(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	first := denyPolicy("p-1", "block-exports")
	second := denyPolicy("p-2", "block-weekends")

	decision := evaluator.Aggregate(candidates(first, second), evaluationInput(), evalNow)

	assert.False(t, decision.Allowed)
	assert.Equal(t, "Denied by policy: block-exports, block-weekends", decision.Reason)
}

func TestAggregateAllowed(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	matched := allowPolicy("p-1", "grant-read", departmentRule("Engineering"))
	unmatched := allowPolicy("p-2", "grant-sales", departmentRule("Sales"))

	decision := evaluator.Aggregate(candidates(matched, unmatched), evaluationInput(), evalNow)

	assert.True(t, decision.Allowed)
	assert.Equal(t, "Allowed by policy: grant-read", decision.Reason)
	// Every candidate is recorded as evaluated, matched or not.
	assert.Equal(t, []string{"p-1", "p-2"}, decision.EvaluatedPolicies)
}

func TestAggregateNoMatchingRules(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	unmatched := allowPolicy("p-1", "grant-sales", departmentRule("Sales"))

	decision := evaluator.Aggregate(candidates(unmatched), evaluationInput(), evalNow)

	assert.False(t, decision.Allowed)
	assert.Equal(t, "No matching policy rules", decision.Reason)
	assert.Equal(t, []string{"p-1"}, decision.EvaluatedPolicies)
}

// An unmatched deny policy contributes nothing; it neither denies nor blocks
// the allow bucket.
func TestAggregateUnmatchedDenyIsSilent(t *testing.T) {
	evaluator := NewPolicyEvaluator()

	deny := denyPolicy("p-deny", "block-sales", departmentRule("Sales"))
	allow := allowPolicy("p-allow", "grant-read")

	decision := evaluator.Aggregate(candidates(deny, allow), evaluationInput(), evalNow)

	assert.True(t, decision.Allowed)
	assert.Equal(t, "Allowed by policy: grant-read", decision.Reason)
	assert.Equal(t, []string{"p-deny", "p-allow"}, decision.EvaluatedPolicies)
}
