// api/model/neo4j/policies.go
package aegis_neo4j

// Policy Effect Types
const (
	// PolicyEffectAllow represents an allow effect in a policy
	PolicyEffectAllow = "allow"

	// PolicyEffectDeny represents a deny effect in a policy
	PolicyEffectDeny = "deny"
)
