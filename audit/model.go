// api/audit/model.go
package audit

import (
	"time"
)

// DecisionLog is the persisted record of one policy decision. PolicyID holds
// the first evaluated policy when any were considered; bypass and
// no-candidate decisions leave it empty.
type DecisionLog struct {
	ID                    string         `json:"id"`
	OrganizationID        string         `json:"organization_id,omitempty"`
	UserID                string         `json:"user_id"`
	PolicyID              string         `json:"policy_id,omitempty"`
	ResourceType          string         `json:"resource_type"`
	ResourceID            string         `json:"resource_id,omitempty"`
	Action                string         `json:"action"`
	Result                bool           `json:"result"`
	SubjectAttributes     map[string]any `json:"subject_attributes,omitempty"`
	ResourceAttributes    map[string]any `json:"resource_attributes,omitempty"`
	EnvironmentAttributes map[string]any `json:"environment_attributes,omitempty"`
	EvaluatedPolicies     []string       `json:"evaluated_policies,omitempty"`
	Reason                string         `json:"reason"`
	Timestamp             time.Time      `json:"timestamp"`
}

// QueryFilter narrows a decision log search. OrganizationID is mandatory;
// the zero value of every other field means "any".
type QueryFilter struct {
	OrganizationID string
	UserID         string
	ResourceType   string
	ResourceID     string
	Action         string
	Result         *bool
	From           time.Time
	To             time.Time
	Limit          int
}
