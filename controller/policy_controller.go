// api/controller/policy_controller.go
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

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.POST("/bulk", pc.BulkCreatePolicies)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.PUT("/:id/deactivate", pc.DeactivatePolicy)
		policies.DELETE("/:id", pc.DeletePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
		policies.POST("/search", pc.SearchPolicies)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", aegis_errors.ErrInvalidPolicyData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	policy.OrganizationID = util.GetOrganizationIDFromContext(c)

	createdPolicy, err := pc.policyService.CreatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrAttributeTypeNotFound):
			util.RespondWithError(c, http.StatusBadRequest, "Rule references unknown attribute type", err)
		case errors.Is(err, aegis_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy", aegis_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// BulkCreatePolicies endpoint
func (pc *PolicyController) BulkCreatePolicies(c *gin.Context) {
	var policies []model.Policy
	if err := c.ShouldBindJSON(&policies); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", aegis_errors.ErrInvalidPolicyData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)
	for i := range policies {
		policies[i].OrganizationID = organizationID
	}

	policyIDs, err := pc.policyService.BulkCreatePolicies(c, policies, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policies", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"policy_ids": policyIDs})
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	policy.ID = policyID
	policy.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrAttributeTypeNotFound):
			util.RespondWithError(c, http.StatusBadRequest, "Rule references unknown attribute type", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeactivatePolicy endpoint. The policy stays on the graph for the decision
// trail; it just stops matching.
func (pc *PolicyController) DeactivatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := pc.policyService.DeactivatePolicy(c, policyID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to deactivate policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := pc.policyService.DeletePolicy(c, policyID, organizationID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	policy, err := pc.policyService.GetPolicy(c, policyID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	policies, err := pc.policyService.ListPolicies(c, organizationID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// SearchPolicies endpoint
func (pc *PolicyController) SearchPolicies(c *gin.Context) {
	var criteria model.PolicySearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	policies, err := pc.policyService.SearchPolicies(c, organizationID, criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to search policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}
