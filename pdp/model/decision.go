package model

// PolicyDecision is the outcome of evaluating one access request. It carries
// everything the audit trail needs to reconstruct the evaluation.
type PolicyDecision struct {
	Allowed               bool           `json:"allowed"`
	Reason                string         `json:"reason"`
	EvaluatedPolicies     []string       `json:"evaluated_policies"`
	SubjectAttributes     map[string]any `json:"subject_attributes,omitempty"`
	ResourceAttributes    map[string]any `json:"resource_attributes,omitempty"`
	EnvironmentAttributes map[string]any `json:"environment_attributes,omitempty"`
	ResourceType          string         `json:"resource_type"`
	ResourceID            string         `json:"resource_id,omitempty"`
	Action                string         `json:"action"`
}
