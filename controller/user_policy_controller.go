// api/controller/user_policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/util"
)

type UserPolicyController struct {
	userPolicyService service.IUserPolicyService
}

func NewUserPolicyController(userPolicyService service.IUserPolicyService) *UserPolicyController {
	return &UserPolicyController{
		userPolicyService: userPolicyService,
	}
}

// RegisterRoutes registers the API routes
func (upc *UserPolicyController) RegisterRoutes(r *gin.RouterGroup) {
	userPolicies := r.Group("/user-policies")
	{
		userPolicies.POST("", upc.AssignPolicy)
		userPolicies.PUT("/:id", upc.UpdateAssignment)
	}
	r.GET("/users/:id/policies", upc.ListUserPolicies)
	r.DELETE("/users/:id/policies/:policyId", upc.RevokePolicy)
}

// AssignPolicy endpoint grants a policy directly to a user
func (upc *UserPolicyController) AssignPolicy(c *gin.Context) {
	var userPolicy model.UserPolicy
	if err := c.ShouldBindJSON(&userPolicy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user policy data", aegis_errors.ErrInvalidUserPolicy)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	userPolicy.OrganizationID = util.GetOrganizationIDFromContext(c)

	createdUserPolicy, err := upc.userPolicyService.AssignPolicy(c, userPolicy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrUserPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already assigned to user", err)
		case errors.Is(err, aegis_errors.ErrInvalidUserPolicy):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid user policy data", err)
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, aegis_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to assign policy", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdUserPolicy)
}

// UpdateAssignment endpoint
func (upc *UserPolicyController) UpdateAssignment(c *gin.Context) {
	assignmentID := c.Param("id")
	var userPolicy model.UserPolicy
	if err := c.ShouldBindJSON(&userPolicy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user policy data", err)
		return
	}
	userPolicy.ID = assignmentID
	userPolicy.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedUserPolicy, err := upc.userPolicyService.UpdateAssignment(c, userPolicy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrUserPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User policy not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidUserPolicy):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid user policy data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update user policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedUserPolicy)
}

// RevokePolicy endpoint removes a direct policy grant
func (upc *UserPolicyController) RevokePolicy(c *gin.Context) {
	targetUserID := c.Param("id")
	policyID := c.Param("policyId")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := upc.userPolicyService.RevokePolicy(c, targetUserID, policyID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrUserPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ListUserPolicies endpoint lists the direct policy grants of one user
func (upc *UserPolicyController) ListUserPolicies(c *gin.Context) {
	targetUserID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	userPolicies, err := upc.userPolicyService.ListUserPolicies(c, targetUserID, organizationID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list user policies", err)
		return
	}

	c.JSON(http.StatusOK, userPolicies)
}
