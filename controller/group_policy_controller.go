// api/controller/group_policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/util"
	helper_util "github.com/lumenhr/aegis/api/util/helper"
)

type GroupPolicyController struct {
	groupPolicyService service.IGroupPolicyService
}

func NewGroupPolicyController(groupPolicyService service.IGroupPolicyService) *GroupPolicyController {
	return &GroupPolicyController{
		groupPolicyService: groupPolicyService,
	}
}

// RegisterRoutes registers the API routes
func (gpc *GroupPolicyController) RegisterRoutes(r *gin.RouterGroup) {
	groupPolicies := r.Group("/group-policies")
	{
		groupPolicies.POST("", gpc.CreateGroupPolicy)
		groupPolicies.PUT("/:id", gpc.UpdateGroupPolicy)
		groupPolicies.DELETE("/:id", gpc.DeleteGroupPolicy)
		groupPolicies.GET("/:id", gpc.GetGroupPolicy)
		groupPolicies.GET("", gpc.ListGroupPolicies)
		groupPolicies.POST("/:id/policies", gpc.GrantPolicies)
		groupPolicies.DELETE("/:id/policies/:policyId", gpc.RevokePolicy)
	}
}

// CreateGroupPolicy endpoint
func (gpc *GroupPolicyController) CreateGroupPolicy(c *gin.Context) {
	var groupPolicy model.GroupPolicy
	if err := c.ShouldBindJSON(&groupPolicy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid group policy data", aegis_errors.ErrInvalidGroupPolicy)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	groupPolicy.OrganizationID = util.GetOrganizationIDFromContext(c)

	createdGroupPolicy, err := gpc.groupPolicyService.CreateGroupPolicy(c, groupPolicy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrGroupPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Group policy already exists for this group", err)
		case errors.Is(err, aegis_errors.ErrInvalidGroupPolicy):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid group policy data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create group policy", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdGroupPolicy)
}

// UpdateGroupPolicy endpoint
func (gpc *GroupPolicyController) UpdateGroupPolicy(c *gin.Context) {
	groupPolicyID := c.Param("id")
	var groupPolicy model.GroupPolicy
	if err := c.ShouldBindJSON(&groupPolicy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid group policy data", err)
		return
	}
	groupPolicy.ID = groupPolicyID
	groupPolicy.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedGroupPolicy, err := gpc.groupPolicyService.UpdateGroupPolicy(c, groupPolicy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrGroupPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Group policy not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidGroupPolicy):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid group policy data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update group policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedGroupPolicy)
}

// DeleteGroupPolicy endpoint
func (gpc *GroupPolicyController) DeleteGroupPolicy(c *gin.Context) {
	groupPolicyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := gpc.groupPolicyService.DeleteGroupPolicy(c, groupPolicyID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrGroupPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Group policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete group policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetGroupPolicy endpoint
func (gpc *GroupPolicyController) GetGroupPolicy(c *gin.Context) {
	groupPolicyID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	groupPolicy, err := gpc.groupPolicyService.GetGroupPolicy(c, groupPolicyID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrGroupPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Group policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve group policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, groupPolicy)
}

// ListGroupPolicies endpoint
func (gpc *GroupPolicyController) ListGroupPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	groupPolicies, err := gpc.groupPolicyService.ListGroupPolicies(c, organizationID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list group policies", err)
		return
	}

	c.JSON(http.StatusOK, groupPolicies)
}

// GrantPolicies endpoint attaches policies to a group policy
func (gpc *GroupPolicyController) GrantPolicies(c *gin.Context) {
	groupPolicyID := c.Param("id")
	var payload struct {
		PolicyIDs []string `json:"policy_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload.PolicyIDs) == 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Policy ids required", aegis_errors.ErrInvalidRequestData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := gpc.groupPolicyService.GrantPolicies(c, groupPolicyID, organizationID, payload.PolicyIDs, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrGroupPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Group policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to grant policies", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokePolicy endpoint detaches one policy from a group policy
func (gpc *GroupPolicyController) RevokePolicy(c *gin.Context) {
	groupPolicyID := c.Param("id")
	policyID := c.Param("policyId")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := gpc.groupPolicyService.RevokePolicy(c, groupPolicyID, organizationID, policyID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) || errors.Is(err, aegis_errors.ErrGroupPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
