// api/service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lumenhr/aegis/api/audit"
	"github.com/lumenhr/aegis/api/dao"
	pdp_dao "github.com/lumenhr/aegis/api/pdp/dao"
	"github.com/lumenhr/aegis/api/util"
)

type Services struct {
	Policy        IPolicyService
	AttributeType IAttributeTypeService
	Role          IRoleService
	GroupPolicy   IGroupPolicyService
	UserPolicy    IUserPolicyService
	User          IUserService
	Access        IAccessService
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	lockService *util.LockService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	policyDAO := dao.NewPolicyDAO(driver)
	attributeTypeDAO := dao.NewAttributeTypeDAO(driver)
	roleDAO := dao.NewRoleDAO(driver)
	groupPolicyDAO := dao.NewGroupPolicyDAO(driver)
	userPolicyDAO := dao.NewUserPolicyDAO(driver)
	userDAO := dao.NewUserDAO()
	retrievalDAO := pdp_dao.NewPolicyRetrievalDAO(driver)

	userService := NewUserService(userDAO, validationUtil, cacheService, eventBus)

	services := &Services{
		Policy:        NewPolicyService(policyDAO, attributeTypeDAO, validationUtil, cacheService, notificationSvc, eventBus),
		AttributeType: NewAttributeTypeService(attributeTypeDAO, policyDAO, validationUtil, cacheService, lockService, eventBus),
		Role:          NewRoleService(roleDAO, validationUtil, notificationSvc, eventBus),
		GroupPolicy:   NewGroupPolicyService(groupPolicyDAO, validationUtil, notificationSvc, eventBus),
		UserPolicy:    NewUserPolicyService(userPolicyDAO, policyDAO, validationUtil, notificationSvc, eventBus),
		User:          userService,
		Access:        NewAccessService(userService, retrievalDAO, auditService),
	}

	return services, nil
}
