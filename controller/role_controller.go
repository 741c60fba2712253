// api/controller/role_controller.go
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

type RoleController struct {
	roleService service.IRoleService
}

func NewRoleController(roleService service.IRoleService) *RoleController {
	return &RoleController{
		roleService: roleService,
	}
}

// RegisterRoutes registers the API routes
func (rc *RoleController) RegisterRoutes(r *gin.RouterGroup) {
	roles := r.Group("/roles")
	{
		roles.POST("", rc.CreateRole)
		roles.PUT("/:id", rc.UpdateRole)
		roles.DELETE("/:id", rc.DeleteRole)
		roles.GET("/:id", rc.GetRole)
		roles.GET("", rc.ListRoles)
		roles.POST("/:id/policies", rc.GrantPolicies)
		roles.DELETE("/:id/policies/:policyId", rc.RevokePolicy)
		roles.POST("/:id/assignments", rc.AssignRole)
		roles.DELETE("/:id/assignments/:userId", rc.RevokeRole)
	}
	r.GET("/users/:id/roles", rc.ListUserAssignments)
}

// CreateRole endpoint
func (rc *RoleController) CreateRole(c *gin.Context) {
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", aegis_errors.ErrInvalidRoleData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	role.OrganizationID = util.GetOrganizationIDFromContext(c)

	createdRole, err := rc.roleService.CreateRole(c, role, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrRoleConflict):
			util.RespondWithError(c, http.StatusConflict, "Role already exists", err)
		case errors.Is(err, aegis_errors.ErrInvalidRoleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create role", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdRole)
}

// UpdateRole endpoint
func (rc *RoleController) UpdateRole(c *gin.Context) {
	roleID := c.Param("id")
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		return
	}
	role.ID = roleID
	role.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedRole, err := rc.roleService.UpdateRole(c, role, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrRoleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidRoleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update role", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedRole)
}

// DeleteRole endpoint
func (rc *RoleController) DeleteRole(c *gin.Context) {
	roleID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := rc.roleService.DeleteRole(c, roleID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRole endpoint
func (rc *RoleController) GetRole(c *gin.Context) {
	roleID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	role, err := rc.roleService.GetRole(c, roleID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve role", err)
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

// ListRoles endpoint
func (rc *RoleController) ListRoles(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	roles, err := rc.roleService.ListRoles(c, organizationID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

// GrantPolicies endpoint attaches policies to a role
func (rc *RoleController) GrantPolicies(c *gin.Context) {
	roleID := c.Param("id")
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

	if err := rc.roleService.GrantPolicies(c, roleID, organizationID, payload.PolicyIDs, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to grant policies", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokePolicy endpoint detaches one policy from a role
func (rc *RoleController) RevokePolicy(c *gin.Context) {
	roleID := c.Param("id")
	policyID := c.Param("policyId")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := rc.roleService.RevokePolicy(c, roleID, organizationID, policyID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) || errors.Is(err, aegis_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// AssignRole endpoint assigns the role to a user
func (rc *RoleController) AssignRole(c *gin.Context) {
	roleID := c.Param("id")
	var assignment model.RoleAssignment
	if err := c.ShouldBindJSON(&assignment); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", aegis_errors.ErrInvalidAssignment)
		return
	}
	assignment.RoleID = roleID
	assignment.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdAssignment, err := rc.roleService.AssignRole(c, assignment, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrAssignmentConflict):
			util.RespondWithError(c, http.StatusConflict, "Role already assigned", err)
		case errors.Is(err, aegis_errors.ErrInvalidAssignment):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", err)
		case errors.Is(err, aegis_errors.ErrRoleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		case errors.Is(err, aegis_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to assign role", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdAssignment)
}

// RevokeRole endpoint removes a user's assignment
func (rc *RoleController) RevokeRole(c *gin.Context) {
	roleID := c.Param("id")
	targetUserID := c.Param("userId")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := rc.roleService.RevokeRole(c, targetUserID, roleID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrAssignmentNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ListUserAssignments endpoint lists the role assignments of one user
func (rc *RoleController) ListUserAssignments(c *gin.Context) {
	targetUserID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	assignments, err := rc.roleService.ListAssignmentsForUser(c, targetUserID, organizationID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}
