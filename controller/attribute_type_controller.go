// api/controller/attribute_type_controller.go
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

type AttributeTypeController struct {
	attributeTypeService service.IAttributeTypeService
}

func NewAttributeTypeController(attributeTypeService service.IAttributeTypeService) *AttributeTypeController {
	return &AttributeTypeController{
		attributeTypeService: attributeTypeService,
	}
}

// RegisterRoutes registers the API routes
func (atc *AttributeTypeController) RegisterRoutes(r *gin.RouterGroup) {
	attributeTypes := r.Group("/attribute-types")
	{
		attributeTypes.POST("", atc.CreateAttributeType)
		attributeTypes.PUT("/:id", atc.UpdateAttributeType)
		attributeTypes.DELETE("/:id", atc.DeleteAttributeType)
		attributeTypes.GET("/:id", atc.GetAttributeType)
		attributeTypes.GET("", atc.ListAttributeTypes)
	}
}

// CreateAttributeType endpoint
func (atc *AttributeTypeController) CreateAttributeType(c *gin.Context) {
	var attributeType model.AttributeType
	if err := c.ShouldBindJSON(&attributeType); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid attribute type data", aegis_errors.ErrInvalidAttributeType)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}
	attributeType.OrganizationID = util.GetOrganizationIDFromContext(c)

	createdAttributeType, err := atc.attributeTypeService.CreateAttributeType(c, attributeType, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrAttributeTypeConflict):
			util.RespondWithError(c, http.StatusConflict, "Attribute type code already in use", err)
		case errors.Is(err, aegis_errors.ErrInvalidAttributeType):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid attribute type data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create attribute type", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdAttributeType)
}

// UpdateAttributeType endpoint
func (atc *AttributeTypeController) UpdateAttributeType(c *gin.Context) {
	attributeTypeID := c.Param("id")
	var attributeType model.AttributeType
	if err := c.ShouldBindJSON(&attributeType); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid attribute type data", err)
		return
	}
	attributeType.ID = attributeTypeID
	attributeType.OrganizationID = util.GetOrganizationIDFromContext(c)
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedAttributeType, err := atc.attributeTypeService.UpdateAttributeType(c, attributeType, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrAttributeTypeNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Attribute type not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidAttributeType):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid attribute type data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update attribute type", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedAttributeType)
}

// DeleteAttributeType endpoint. Rules referencing the code are deactivated
// before the node goes.
func (atc *AttributeTypeController) DeleteAttributeType(c *gin.Context) {
	attributeTypeID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	organizationID := util.GetOrganizationIDFromContext(c)

	if err := atc.attributeTypeService.DeleteAttributeType(c, attributeTypeID, organizationID, userID); err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrAttributeTypeNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Attribute type not found", err)
		case errors.Is(err, aegis_errors.ErrAttributeTypeConflict):
			util.RespondWithError(c, http.StatusConflict, "Deletion already in progress", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete attribute type", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAttributeType endpoint
func (atc *AttributeTypeController) GetAttributeType(c *gin.Context) {
	attributeTypeID := c.Param("id")
	organizationID := util.GetOrganizationIDFromContext(c)

	attributeType, err := atc.attributeTypeService.GetAttributeType(c, attributeTypeID, organizationID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrAttributeTypeNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Attribute type not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve attribute type", err)
		}
		return
	}

	c.JSON(http.StatusOK, attributeType)
}

// ListAttributeTypes endpoint. A code query parameter narrows the listing to
// the single attribute type carrying that code.
func (atc *AttributeTypeController) ListAttributeTypes(c *gin.Context) {
	organizationID := util.GetOrganizationIDFromContext(c)

	if code := c.Query("code"); code != "" {
		attributeType, err := atc.attributeTypeService.GetAttributeTypeByCode(c, code, organizationID)
		if err != nil {
			if errors.Is(err, aegis_errors.ErrAttributeTypeNotFound) {
				util.RespondWithError(c, http.StatusNotFound, "Attribute type not found", err)
			} else {
				util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve attribute type", err)
			}
			return
		}
		c.JSON(http.StatusOK, []*model.AttributeType{attributeType})
		return
	}

	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	attributeTypes, err := atc.attributeTypeService.ListAttributeTypes(c, organizationID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list attribute types", err)
		return
	}

	c.JSON(http.StatusOK, attributeTypes)
}
