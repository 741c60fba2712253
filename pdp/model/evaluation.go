package model

import "github.com/lumenhr/aegis/api/model"

// Candidate sources, in dedup precedence order
const (
	SourceDirect = "direct"
	SourceGroup  = "group"
	SourceRole   = "role"
)

// CandidatePolicy is a policy that survived resolution for a request, with
// the priority it carries for this subject.
type CandidatePolicy struct {
	Policy            *model.Policy
	EffectivePriority int
	Source            string // "direct", "group" or "role"
}
