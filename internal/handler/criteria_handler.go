package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/service"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// CriteriaHandler exposes teacher-scoped criteria endpoints.
type CriteriaHandler struct {
	service *service.CriteriaService
}

// NewCriteriaHandler creates a new handler.
func NewCriteriaHandler(svc *service.CriteriaService) *CriteriaHandler {
	return &CriteriaHandler{service: svc}
}

// List godoc
// @Summary List criteria
// @Description List the grading criteria of an owned module
// @Tags Criteria
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/criteria [get]
func (h *CriteriaHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	criteria, err := h.service.List(c.Request.Context(), principal.ID, moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, criteria, nil)
}

// Create godoc
// @Summary Add criterion
// @Description Add a grading criterion to an active owned module
// @Tags Criteria
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param payload body service.CreateCriteriaRequest true "Criteria payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/criteria [post]
func (h *CriteriaHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CreateCriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criteria payload"))
		return
	}

	criteria, err := h.service.Create(c.Request.Context(), principal.ID, moduleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, criteria)
}

// Update godoc
// @Summary Update criterion
// @Description Edit a criterion while its module is active
// @Tags Criteria
// @Accept json
// @Produce json
// @Param id path int true "Criteria ID"
// @Param payload body service.UpdateCriteriaRequest true "Criteria payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/criteria/{id} [put]
func (h *CriteriaHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	criteriaID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateCriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criteria payload"))
		return
	}

	criteria, err := h.service.Update(c.Request.Context(), principal.ID, criteriaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, criteria, nil)
}

// Delete godoc
// @Summary Delete criterion
// @Description Delete a criterion and cascade its grades
// @Tags Criteria
// @Produce json
// @Param id path int true "Criteria ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/criteria/{id} [delete]
func (h *CriteriaHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	criteriaID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal.ID, criteriaID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
