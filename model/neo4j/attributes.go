// api/model/neo4j/attributes.go
package aegis_neo4j

// Attribute Keys
const (
	// AttrID represents the unique identifier of a node
	AttrID = "id"

	// AttrName represents the name attribute of a node
	AttrName = "name"

	// AttrDescription represents the description attribute of a node
	AttrDescription = "description"

	// AttrCode represents the tenant-unique code of an attribute type
	AttrCode = "code"

	// AttrCategory represents the attribute category (subject, resource, action, environment)
	AttrCategory = "category"

	// AttrDataType represents the declared data type of an attribute type
	AttrDataType = "dataType"

	// AttrAllowedValues represents the optional value whitelist of an attribute type
	AttrAllowedValues = "allowedValues"

	// AttrOrganizationID represents the organization identifier of a node
	AttrOrganizationID = "organizationID"

	// AttrEffect represents the effect of a policy
	AttrEffect = "effect"

	// AttrPriority represents the priority of a policy
	AttrPriority = "priority"

	// AttrResourceType represents the resource type a policy applies to
	AttrResourceType = "resourceType"

	// AttrResourceID represents the specific resource a policy applies to
	AttrResourceID = "resourceID"

	// AttrActions represents the actions a policy applies to
	AttrActions = "actions"

	// AttrCombineLogic represents how a policy combines its rule results
	AttrCombineLogic = "combineLogic"

	// AttrRules represents the JSON-serialized rules of a policy
	AttrRules = "rules"

	// AttrValidFrom represents the start of a validity window
	AttrValidFrom = "validFrom"

	// AttrValidUntil represents the end of a validity window
	AttrValidUntil = "validUntil"

	// AttrGroupType represents the matching dimension of a policy group
	AttrGroupType = "groupType"

	// AttrGroupValue represents the matched value of a policy group
	AttrGroupValue = "groupValue"

	// AttrScope represents the scope of a role assignment
	AttrScope = "scope"

	// AttrScopeID represents the scoped entity of a role assignment
	AttrScopeID = "scopeID"

	// AttrPriorityOverride represents a per-user priority override on a policy grant
	AttrPriorityOverride = "priorityOverride"

	// AttrAssignedBy represents the user who created an assignment
	AttrAssignedBy = "assignedBy"

	// AttrAssignedAt represents when an assignment was created
	AttrAssignedAt = "assignedAt"

	// AttrEmail represents the email attribute of a user
	AttrEmail = "email"

	// AttrProfile represents the JSON-serialized employment profile of a user
	AttrProfile = "profile"

	// AttrActive represents whether a node is active
	AttrActive = "active"

	// AttrCreatedAt represents the creation timestamp of a node
	AttrCreatedAt = "createdAt"

	// AttrUpdatedAt represents the last update timestamp of a node
	AttrUpdatedAt = "updatedAt"
)
