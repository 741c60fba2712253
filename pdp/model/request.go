package model

// AccessRequest describes one authorization question: may the subject perform
// Action on the resource identified by (ResourceType, ResourceID)? Resource
// attributes are supplied by the caller; subject and environment attributes
// are resolved by the engine.
type AccessRequest struct {
	ResourceType       string         `json:"resource_type"`
	ResourceID         string         `json:"resource_id,omitempty"`
	Action             string         `json:"action"`
	ResourceAttributes map[string]any `json:"resource_attributes,omitempty"`
}

// Computed is a lazily evaluated attribute value. The rule interpreter
// invokes it when it is the resolved value of an attribute path.
type Computed func() any
