// api/controller/access_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/pdp/engine"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/util"
)

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/evaluate", ac.EvaluateAccess)
		access.POST("/check", ac.CheckAccess)
	}
	r.GET("/decisions", ac.QueryDecisions)
}

// EvaluateRequest is the wire form of an access question. SubjectID is
// optional; when present and different from the caller it requires admin
// standing.
type EvaluateRequest struct {
	SubjectID          string         `json:"subject_id,omitempty"`
	ResourceType       string         `json:"resource_type"`
	ResourceID         string         `json:"resource_id,omitempty"`
	Action             string         `json:"action"`
	ResourceAttributes map[string]any `json:"resource_attributes,omitempty"`
	DisableAudit       bool           `json:"disable_audit,omitempty"`
}

// EvaluateAccess endpoint
func (ac *AccessController) EvaluateAccess(c *gin.Context) {
	decision, err := ac.evaluate(c)
	if err != nil {
		respondWithEvaluationError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// CheckAccess endpoint. Same evaluation, boolean answer.
func (ac *AccessController) CheckAccess(c *gin.Context) {
	decision, err := ac.evaluate(c)
	if err != nil {
		respondWithEvaluationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": decision.Allowed})
}

func (ac *AccessController) evaluate(c *gin.Context) (*pdp_model.PolicyDecision, error) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, aegis_errors.ErrInvalidRequestData
	}
	if req.ResourceType == "" || req.Action == "" {
		return nil, aegis_errors.ErrInvalidRequestData
	}

	caller, err := util.GetUserFromContext(c)
	if err != nil {
		return nil, aegis_errors.ErrUnauthorized
	}

	subjectID := caller.ID
	if req.SubjectID != "" && req.SubjectID != caller.ID {
		// Evaluating on behalf of another subject is an admin operation.
		if !caller.IsSuperuser && !caller.IsOrgAdmin {
			return nil, aegis_errors.ErrForbidden
		}
		subjectID = req.SubjectID
	}

	organizationID := util.GetOrganizationIDFromContext(c)

	request := pdp_model.AccessRequest{
		ResourceType:       req.ResourceType,
		ResourceID:         req.ResourceID,
		Action:             req.Action,
		ResourceAttributes: req.ResourceAttributes,
	}

	var opts []engine.Option
	if req.DisableAudit {
		opts = append(opts, engine.WithAuditDisabled())
	}

	return ac.accessService.EvaluateAccess(c, subjectID, organizationID, request, opts...)
}

func respondWithEvaluationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, aegis_errors.ErrInvalidRequestData):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
	case errors.Is(err, aegis_errors.ErrUnauthorized):
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, aegis_errors.ErrForbidden):
		util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, aegis_errors.ErrMissingTenantContext):
		util.RespondWithError(c, http.StatusBadRequest, "Missing organization context", err)
	case errors.Is(err, aegis_errors.ErrUserNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Subject not found", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate access", err)
	}
}

// QueryDecisions endpoint. Regular users see their own decisions; org admins
// and superusers see the whole tenant.
func (ac *AccessController) QueryDecisions(c *gin.Context) {
	caller, err := util.GetUserFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	filter := audit.QueryFilter{
		OrganizationID: util.GetOrganizationIDFromContext(c),
		UserID:         c.Query("user_id"),
		ResourceType:   c.Query("resource_type"),
		ResourceID:     c.Query("resource_id"),
		Action:         c.Query("action"),
	}
	if !caller.IsSuperuser && !caller.IsOrgAdmin {
		filter.UserID = caller.ID
	}

	if resultParam := c.Query("result"); resultParam != "" {
		result, err := strconv.ParseBool(resultParam)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid result filter", err)
			return
		}
		filter.Result = &result
	}
	if fromParam := c.Query("from"); fromParam != "" {
		from, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp", err)
			return
		}
		filter.From = from
	}
	if toParam := c.Query("to"); toParam != "" {
		to, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp", err)
			return
		}
		filter.To = to
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid limit", aegis_errors.ErrInvalidPagination)
			return
		}
		filter.Limit = limit
	}

	decisions, err := ac.accessService.QueryDecisions(c, filter)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrMissingTenantContext) {
			util.RespondWithError(c, http.StatusBadRequest, "Missing organization context", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decisions", err)
		return
	}

	c.JSON(http.StatusOK, decisions)
}
