// api/controller/access_controller_test.go
package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenhr/aegis/api/audit"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	"github.com/lumenhr/aegis/api/model"
	"github.com/lumenhr/aegis/api/pdp/engine"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
	"github.com/lumenhr/aegis/api/test/mock"
	"github.com/lumenhr/aegis/api/util"
)

// setupAccessRouter wires the controller behind a stand-in for the auth
// middleware. A nil caller simulates a request that never authenticated.
func setupAccessRouter(svc *mock.MockAccessService, caller *model.User, organizationID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if caller != nil {
			c.Set(util.ContextKeyUserID, caller.ID)
			c.Set(util.ContextKeyUser, caller)
			c.Set(util.ContextKeyOrganizationID, organizationID)
		}
		c.Next()
	})
	api := router.Group("/api/v1")
	NewAccessController(svc).RegisterRoutes(api)
	return router
}

func regularCaller() *model.User {
	return &model.User{ID: "u-1", Email: "rhea@example.com", OrganizationID: "org-1"}
}

func adminCaller() *model.User {
	caller := regularCaller()
	caller.IsOrgAdmin = true
	return caller
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEvaluateAccessEndpoint(t *testing.T) {
	svc := new(mock.MockAccessService)
	expected := pdp_model.AccessRequest{ResourceType: "document", ResourceID: "doc-7", Action: "read"}
	svc.On("EvaluateAccess", tmock.Anything, "u-1", "org-1", expected, tmock.Anything).
		Return(&pdp_model.PolicyDecision{
			Allowed:           true,
			Reason:            "Allowed by policy: engineering-read",
			EvaluatedPolicies: []string{"p-1"},
			ResourceType:      "document",
			ResourceID:        "doc-7",
			Action:            "read",
		}, nil)

	router := setupAccessRouter(svc, regularCaller(), "org-1")
	w := postJSON(router, "/api/v1/access/evaluate", gin.H{
		"resource_type": "document",
		"resource_id":   "doc-7",
		"action":        "read",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var decision pdp_model.PolicyDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.True(t, decision.Allowed)
	assert.Equal(t, "Allowed by policy: engineering-read", decision.Reason)
	assert.Equal(t, []string{"p-1"}, decision.EvaluatedPolicies)
	svc.AssertExpectations(t)
}

func TestEvaluateAccessRejectsIncompleteRequest(t *testing.T) {
	svc := new(mock.MockAccessService)
	router := setupAccessRouter(svc, regularCaller(), "org-1")

	w := postJSON(router, "/api/v1/access/evaluate", gin.H{"resource_type": "document"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid access request")
	svc.AssertNotCalled(t, "EvaluateAccess",
		tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestEvaluateAccessRequiresAuthentication(t *testing.T) {
	svc := new(mock.MockAccessService)
	router := setupAccessRouter(svc, nil, "")

	w := postJSON(router, "/api/v1/access/evaluate", gin.H{
		"resource_type": "document",
		"action":        "read",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEvaluateAccessSubjectOverride(t *testing.T) {
	t.Run("regular caller is forbidden", func(t *testing.T) {
		svc := new(mock.MockAccessService)
		router := setupAccessRouter(svc, regularCaller(), "org-1")

		w := postJSON(router, "/api/v1/access/evaluate", gin.H{
			"subject_id":    "u-9",
			"resource_type": "document",
			"action":        "read",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "EvaluateAccess",
			tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
	})

	t.Run("org admin evaluates another subject", func(t *testing.T) {
		svc := new(mock.MockAccessService)
		svc.On("EvaluateAccess", tmock.Anything, "u-9", "org-1", tmock.Anything, tmock.Anything).
			Return(&pdp_model.PolicyDecision{Allowed: false, Reason: "No applicable policies found"}, nil)

		router := setupAccessRouter(svc, adminCaller(), "org-1")
		w := postJSON(router, "/api/v1/access/evaluate", gin.H{
			"subject_id":    "u-9",
			"resource_type": "document",
			"action":        "read",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestEvaluateAccessPassesAuditFlag(t *testing.T) {
	svc := new(mock.MockAccessService)
	svc.On("EvaluateAccess", tmock.Anything, "u-1", "org-1", tmock.Anything,
		tmock.MatchedBy(func(opts []engine.Option) bool { return len(opts) == 1 })).
		Return(&pdp_model.PolicyDecision{Allowed: true, Reason: "Allowed by policy: ops"}, nil)

	router := setupAccessRouter(svc, regularCaller(), "org-1")
	w := postJSON(router, "/api/v1/access/evaluate", gin.H{
		"resource_type": "document",
		"action":        "read",
		"disable_audit": true,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestEvaluateAccessSubjectNotFound(t *testing.T) {
	svc := new(mock.MockAccessService)
	svc.On("EvaluateAccess", tmock.Anything, "u-9", "org-1", tmock.Anything, tmock.Anything).
		Return(nil, aegis_errors.ErrUserNotFound)

	router := setupAccessRouter(svc, adminCaller(), "org-1")
	w := postJSON(router, "/api/v1/access/evaluate", gin.H{
		"subject_id":    "u-9",
		"resource_type": "document",
		"action":        "read",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Subject not found")
}

func TestCheckAccessEndpoint(t *testing.T) {
	svc := new(mock.MockAccessService)
	svc.On("EvaluateAccess", tmock.Anything, "u-1", "org-1", tmock.Anything, tmock.Anything).
		Return(&pdp_model.PolicyDecision{Allowed: false, Reason: "Denied by policy: lockdown"}, nil)

	router := setupAccessRouter(svc, regularCaller(), "org-1")
	w := postJSON(router, "/api/v1/access/check", gin.H{
		"resource_type": "document",
		"action":        "read",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body["allowed"])
}

func TestQueryDecisionsEndpoint(t *testing.T) {
	svc := new(mock.MockAccessService)
	svc.On("QueryDecisions", tmock.Anything, tmock.MatchedBy(func(filter audit.QueryFilter) bool {
		return filter.OrganizationID == "org-1" &&
			filter.Action == "read" &&
			filter.Result != nil && *filter.Result &&
			filter.Limit == 20 &&
			filter.UserID == ""
	})).Return([]audit.DecisionLog{{ID: "dec-1", UserID: "u-9", Action: "read", Result: true}}, nil)

	router := setupAccessRouter(svc, adminCaller(), "org-1")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?action=read&result=true&limit=20", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var logs []audit.DecisionLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "dec-1", logs[0].ID)
	svc.AssertExpectations(t)
}

// Regular callers only see their own trail, whatever user_id they ask for.
func TestQueryDecisionsSelfScoped(t *testing.T) {
	svc := new(mock.MockAccessService)
	svc.On("QueryDecisions", tmock.Anything, tmock.MatchedBy(func(filter audit.QueryFilter) bool {
		return filter.UserID == "u-1"
	})).Return([]audit.DecisionLog{}, nil)

	router := setupAccessRouter(svc, regularCaller(), "org-1")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?user_id=u-9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestQueryDecisionsRejectsBadFilters(t *testing.T) {
	svc := new(mock.MockAccessService)
	router := setupAccessRouter(svc, adminCaller(), "org-1")

	for _, query := range []string{"result=maybe", "from=yesterday", "limit=0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	svc.AssertNotCalled(t, "QueryDecisions", tmock.Anything, tmock.Anything)
}
