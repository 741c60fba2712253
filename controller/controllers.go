// api/controller/controllers.go
package controller

import "github.com/lumenhr/aegis/api/service"

type Controllers struct {
	Access        *AccessController
	Policy        *PolicyController
	AttributeType *AttributeTypeController
	Role          *RoleController
	GroupPolicy   *GroupPolicyController
	UserPolicy    *UserPolicyController
	User          *UserController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Access:        NewAccessController(services.Access),
		Policy:        NewPolicyController(services.Policy),
		AttributeType: NewAttributeTypeController(services.AttributeType),
		Role:          NewRoleController(services.Role),
		GroupPolicy:   NewGroupPolicyController(services.GroupPolicy),
		UserPolicy:    NewUserPolicyController(services.UserPolicy),
		User:          NewUserController(services.User),
	}
}
