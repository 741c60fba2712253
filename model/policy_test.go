// api/model/policy_test.go
package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestPolicyIsCurrentlyActive(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{"active without window", Policy{Active: true}, true},
		{"inactive", Policy{Active: false}, false},
		{"inside window", Policy{Active: true, ValidFrom: &past, ValidUntil: &future}, true},
		{"before window", Policy{Active: true, ValidFrom: &future}, false},
		{"after window", Policy{Active: true, ValidUntil: &past}, false},
		{"open ended start", Policy{Active: true, ValidFrom: &past}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.IsCurrentlyActive(now))
		})
	}
}

func TestPolicyAppliesToAction(t *testing.T) {
	unrestricted := Policy{}
	assert.True(t, unrestricted.AppliesToAction("read"))
	assert.True(t, unrestricted.AppliesToAction("delete"))

	scoped := Policy{Actions: []string{"read", "export"}}
	assert.True(t, scoped.AppliesToAction("export"))
	assert.False(t, scoped.AppliesToAction("delete"))
}

func TestPolicyAppliesToResource(t *testing.T) {
	unscoped := Policy{}
	assert.True(t, unscoped.AppliesToResource("document", "doc-1"))

	typed := Policy{ResourceType: "document"}
	assert.True(t, typed.AppliesToResource("document", "doc-1"))
	assert.False(t, typed.AppliesToResource("report", "rep-1"))
	// An unstated request side matches any policy constraint.
	assert.True(t, typed.AppliesToResource("", ""))

	pinned := Policy{ResourceType: "document", ResourceID: "doc-1"}
	assert.True(t, pinned.AppliesToResource("document", "doc-1"))
	assert.False(t, pinned.AppliesToResource("document", "doc-2"))
}

func TestPolicyActiveRules(t *testing.T) {
	policy := Policy{
		Rules: []PolicyRule{
			{ID: "r-1", Active: true},
			{ID: "r-2", Active: false},
			{ID: "r-3", Active: true},
		},
	}

	rules := policy.ActiveRules()

	assert.Len(t, rules, 2)
	assert.Equal(t, "r-1", rules[0].ID)
	assert.Equal(t, "r-3", rules[1].ID)
}

func TestUserPolicyEffectivePriority(t *testing.T) {
	policy := &Policy{ID: "p-1", Priority: 10}

	plain := UserPolicy{Policy: policy}
	assert.Equal(t, 10, plain.EffectivePriority())

	override := 99
	boosted := UserPolicy{Policy: policy, PriorityOverride: &override}
	assert.Equal(t, 99, boosted.EffectivePriority())

	orphan := UserPolicy{}
	assert.Equal(t, 0, orphan.EffectivePriority())
}

func TestGrantValidityWindows(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	grant := UserPolicy{Active: true}
	assert.True(t, grant.IsCurrentlyValid(now))

	grant.ValidUntil = &past
	assert.False(t, grant.IsCurrentlyValid(now))

	assignment := RoleAssignment{Active: true, ValidFrom: &past, ValidUntil: &future}
	assert.True(t, assignment.IsCurrentlyValid(now))

	assignment.Active = false
	assert.False(t, assignment.IsCurrentlyValid(now))

	assignment = RoleAssignment{Active: true, ValidFrom: &future}
	assert.False(t, assignment.IsCurrentlyValid(now))
}
