package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/pkg/response"
)

type orgService interface {
	CreateSchool(ctx context.Context, req dto.CreateSchoolRequest) (*models.School, error)
	GetSchool(ctx context.Context, uniqueName string) (*models.School, error)
	CreateClass(ctx context.Context, req dto.CreateClassRequest) (*dto.ClassView, error)
	ListClasses(ctx context.Context, uniqueName string) ([]*dto.ClassView, error)
}

// OrgHandler manages schools and classes.
type OrgHandler struct {
	service orgService
}

// NewOrgHandler creates the handler.
func NewOrgHandler(svc orgService) *OrgHandler {
	return &OrgHandler{service: svc}
}

// CreateSchool godoc
// @Summary Create school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body dto.CreateSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools [post]
func (h *OrgHandler) CreateSchool(c *gin.Context) {
	var req dto.CreateSchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.service.CreateSchool(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// GetSchool godoc
// @Summary Get school
// @Tags Schools
// @Produce json
// @Param uniqueName path string true "School unique name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{uniqueName} [get]
func (h *OrgHandler) GetSchool(c *gin.Context) {
	school, err := h.service.GetSchool(c.Request.Context(), c.Param("uniqueName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school)
}

// CreateClass godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes [post]
func (h *OrgHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListClasses godoc
// @Summary List classes of a school
// @Tags Classes
// @Produce json
// @Param school path string true "School unique name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{school} [get]
func (h *OrgHandler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context(), c.Param("school"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, map[string]interface{}{"total": len(classes)})
}
