// api/pdp/engine/rules_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

func evaluationInput() *EvaluationInput {
	return &EvaluationInput{
		Subject: map[string]any{
			"email":        "jane@acme.test",
			"is_verified":  true,
			"job_grade":    float64(7),
			"tags":         []any{"hr", "finance"},
			"regions":      []string{"emea", "apac"},
			"joined":       "2023-04-01",
			"shift_start":  "09:00:00",
			"direct_count": 3,
			"department": map[string]any{
				"id":   "dept-42",
				"name": "Engineering",
			},
			"manager_chain": pdp_model.Computed(func() any {
				return map[string]any{"lead": "u-100"}
			}),
			"badge": pdp_model.Computed(func() any { return "B-778" }),
		},
		Resource: map[string]any{
			"owner_id":       "u-1",
			"classification": "internal",
		},
		Environment: map[string]any{
			"hour":       14,
			"is_weekend": false,
		},
		Action: "read",
	}
}

func subjectRule(path, operator string, value any) model.PolicyRule {
	return model.PolicyRule{
		ID:                "r-1",
		AttributeCategory: model.CategorySubject,
		AttributePath:     path,
		Operator:          operator,
		Value:             value,
		Active:            true,
	}
}

func TestEvaluateRuleOperators(t *testing.T) {
	tests := []struct {
		name string
		rule model.PolicyRule
		want bool
	}{
		{"eq string", subjectRule("department.name", model.OpEquals, "Engineering"), true},
		{"eq string mismatch", subjectRule("department.name", model.OpEquals, "Sales"), false},
		{"eq numeric cross-type", subjectRule("direct_count", model.OpEquals, float64(3)), true},
		{"eq numeric text form", subjectRule("job_grade", model.OpEquals, "7"), true},
		{"eq bool", subjectRule("is_verified", model.OpEquals, true), true},
		{"neq", subjectRule("department.name", model.OpNotEquals, "Sales"), true},
		{"neq equal values", subjectRule("department.name", model.OpNotEquals, "Engineering"), false},
		{"gt", subjectRule("job_grade", model.OpGreater, 5), true},
		{"gt equal", subjectRule("job_grade", model.OpGreater, 7), false},
		{"gte equal", subjectRule("job_grade", model.OpGreaterEq, 7), true},
		{"lt", subjectRule("job_grade", model.OpLess, 10), true},
		{"lte above", subjectRule("job_grade", model.OpLessEq, 5), false},
		{"gt date strings", subjectRule("joined", model.OpGreater, "2023-01-01"), true},
		{"lt time strings", subjectRule("shift_start", model.OpLess, "10:00:00"), true},
		{"in any slice", subjectRule("department.name", model.OpIn, []any{"Engineering", "Product"}), true},
		{"in absent", subjectRule("department.name", model.OpIn, []any{"Sales"}), false},
		{"in string slice", subjectRule("department.name", model.OpIn, []string{"Engineering"}), true},
		{"in non-list value", subjectRule("department.name", model.OpIn, "Engineering"), false},
		{"not_in", subjectRule("department.name", model.OpNotIn, []any{"Sales"}), true},
		{"not_in member", subjectRule("department.name", model.OpNotIn, []any{"Engineering"}), false},
		{"not_in non-list value", subjectRule("department.name", model.OpNotIn, "Sales"), false},
		{"contains", subjectRule("email", model.OpContains, "@acme"), true},
		{"contains coerces numbers", subjectRule("job_grade", model.OpContains, 7), true},
		{"not_contains", subjectRule("email", model.OpNotContains, "@other"), true},
		{"starts_with", subjectRule("email", model.OpStartsWith, "jane"), true},
		{"ends_with", subjectRule("email", model.OpEndsWith, ".test"), true},
		{"regex", subjectRule("email", model.OpRegex, `^[a-z]+@acme\.test$`), true},
		{"regex no match", subjectRule("email", model.OpRegex, `^bob@`), false},
		{"regex invalid pattern", subjectRule("email", model.OpRegex, `([`), false},
		{"unknown operator", subjectRule("email", "matches", "jane"), false},
	}

	input := evaluationInput()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateRule(tt.rule, input))
		})
	}
}

// Negating a rule must equal the logical NOT of the same rule, whatever the
// operator.
func TestEvaluateRuleNegation(t *testing.T) {
	input := evaluationInput()
	rules := []model.PolicyRule{
		subjectRule("department.name", model.OpEquals, "Engineering"),
		subjectRule("department.name", model.OpNotEquals, "Engineering"),
		subjectRule("job_grade", model.OpGreater, 5),
		subjectRule("job_grade", model.OpGreaterEq, 7),
		subjectRule("job_grade", model.OpLess, 5),
		subjectRule("job_grade", model.OpLessEq, 7),
		subjectRule("department.name", model.OpIn, []any{"Engineering"}),
		subjectRule("department.name", model.OpNotIn, []any{"Engineering"}),
		subjectRule("email", model.OpContains, "@acme"),
		subjectRule("email", model.OpNotContains, "@acme"),
		subjectRule("email", model.OpStartsWith, "jane"),
		subjectRule("email", model.OpEndsWith, ".test"),
		subjectRule("email", model.OpRegex, `^jane`),
	}

	for _, rule := range rules {
		plain := EvaluateRule(rule, input)
		negated := rule
		negated.Negate = true
		assert.Equal(t, !plain, EvaluateRule(negated, input),
			"operator %s negation must invert", rule.Operator)
	}
}

func TestEvaluateRuleCategorySelection(t *testing.T) {
	input := evaluationInput()

	resourceRule := model.PolicyRule{
		AttributeCategory: model.CategoryResource,
		AttributePath:     "classification",
		Operator:          model.OpEquals,
		Value:             "internal",
		Active:            true,
	}
	assert.True(t, EvaluateRule(resourceRule, input))

	envRule := model.PolicyRule{
		AttributeCategory: model.CategoryEnvironment,
		AttributePath:     "hour",
		Operator:          model.OpLess,
		Value:             18,
		Active:            true,
	}
	assert.True(t, EvaluateRule(envRule, input))

	// Categories without an attribute map never match.
	actionRule := model.PolicyRule{
		AttributeCategory: model.CategoryAction,
		AttributePath:     "hour",
		Operator:          model.OpEquals,
		Value:             14,
		Active:            true,
	}
	assert.False(t, EvaluateRule(actionRule, input))

	unknownRule := actionRule
	unknownRule.AttributeCategory = "network"
	assert.False(t, EvaluateRule(unknownRule, input))
}

func TestEvaluateRuleMissingPath(t *testing.T) {
	input := evaluationInput()

	missing := subjectRule("department.floor", model.OpEquals, "3")
	assert.False(t, EvaluateRule(missing, input))

	// A failed traversal is false even under negation; there is no value to
	// compare against.
	negated := missing
	negated.Negate = true
	assert.False(t, EvaluateRule(negated, input))

	throughScalar := subjectRule("email.domain", model.OpEquals, "acme.test")
	assert.False(t, EvaluateRule(throughScalar, input))

	empty := subjectRule("", model.OpEquals, "x")
	assert.False(t, EvaluateRule(empty, input))
}

func TestEvaluateRuleComputedAttributes(t *testing.T) {
	input := evaluationInput()

	// Computed leaf value is invoked before comparison.
	leaf := subjectRule("badge", model.OpStartsWith, "B-")
	assert.True(t, EvaluateRule(leaf, input))

	// Computed intermediate values are invoked during traversal.
	nested := subjectRule("manager_chain.lead", model.OpEquals, "u-100")
	assert.True(t, EvaluateRule(nested, input))
}

func TestEvaluateRuleComparisonErrorsAreFalse(t *testing.T) {
	input := evaluationInput()

	// Ordering a list against a number has no defined comparison.
	mismatch := subjectRule("tags", model.OpGreater, 5)
	assert.False(t, EvaluateRule(mismatch, input))

	// The raw comparison is false, so negation makes the rule true; the
	// failure happened inside the operator, not during traversal.
	negated := mismatch
	negated.Negate = true
	assert.True(t, EvaluateRule(negated, input))
}

func TestResolvePath(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{
			"b": map[string]string{"c": "deep"},
		},
		"top": "level",
	}

	value, ok := resolvePath(root, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, "deep", value)

	value, ok = resolvePath(root, "top")
	assert.True(t, ok)
	assert.Equal(t, "level", value)

	_, ok = resolvePath(root, "a.b.missing")
	assert.False(t, ok)

	_, ok = resolvePath(root, "top.deeper")
	assert.False(t, ok)
}
