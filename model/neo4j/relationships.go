// api/model/neo4j/relationships.go
package aegis_neo4j

// Relationship Types
const (
	// RelWorksFor represents the relationship between a user and their organization
	RelWorksFor = "WORKS_FOR"

	// RelBelongsTo represents the relationship between a policy, attribute type,
	// policy group or role and its owning organization
	RelBelongsTo = "BELONGS_TO"

	// RelHasPolicy represents a direct policy grant to a user; assignment
	// metadata lives on the relationship properties
	RelHasPolicy = "HAS_POLICY"

	// RelHasRole represents a role assignment to a user; scope and validity
	// metadata lives on the relationship properties
	RelHasRole = "HAS_ROLE"

	// RelGrants represents the relationship between a policy group or role and
	// the policies it carries
	RelGrants = "GRANTS"
)
