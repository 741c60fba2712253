// api/model/neo4j/nodes.go
package aegis_neo4j

// Node Labels
const (
	// LabelOrganization represents a tenant in the system
	LabelOrganization = "Organization"

	// LabelUser represents a user in the system
	LabelUser = "User"

	// LabelPolicy represents an access control policy
	LabelPolicy = "Policy"

	// LabelAttributeType represents an attribute definition used by policy rules
	LabelAttributeType = "AttributeType"

	// LabelPolicyGroup represents an attribute-matched group that grants policies
	LabelPolicyGroup = "PolicyGroup"

	// LabelRole represents a role that can be assigned to users
	LabelRole = "Role"
)
