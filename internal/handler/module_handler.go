package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/service"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// ModuleHandler exposes teacher-scoped module endpoints including the
// leaderboard views and exports.
type ModuleHandler struct {
	modules     *service.ModuleService
	leaderboard *service.LeaderboardService
	exports     bool
}

// NewModuleHandler creates a new handler. Exports can be disabled by
// configuration.
func NewModuleHandler(modules *service.ModuleService, leaderboard *service.LeaderboardService, exportsEnabled bool) *ModuleHandler {
	return &ModuleHandler{modules: modules, leaderboard: leaderboard, exports: exportsEnabled}
}

// List godoc
// @Summary List modules
// @Description List the modules of an owned group
// @Tags Modules
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id}/modules [get]
func (h *ModuleHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	modules, err := h.modules.List(c.Request.Context(), principal.ID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, modules, nil)
}

// Create godoc
// @Summary Create module
// @Description Open a new module in an owned group
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param payload body service.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id}/modules [post]
func (h *ModuleHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload"))
		return
	}

	module, err := h.modules.Create(c.Request.Context(), principal.ID, groupID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, module)
}

// Get godoc
// @Summary Get module
// @Description Fetch one owned module
// @Tags Modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id} [get]
func (h *ModuleHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	module, err := h.modules.FindOwned(c.Request.Context(), principal.ID, moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, module, nil)
}

// Finish godoc
// @Summary Finish module
// @Description Close a module permanently; reads stay available
// @Tags Modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/finish [post]
func (h *ModuleHandler) Finish(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.modules.Finish(c.Request.Context(), principal.ID, moduleID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Delete godoc
// @Summary Delete module
// @Description Delete the most recent active module and its data
// @Tags Modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id} [delete]
func (h *ModuleHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.modules.Delete(c.Request.Context(), principal.ID, moduleID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Leaderboard godoc
// @Summary Module leaderboard
// @Description Ranked standings of an owned module
// @Tags Leaderboard
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/leaderboard [get]
func (h *ModuleHandler) Leaderboard(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.leaderboard.ForTeacher(c.Request.Context(), principal.ID, moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportLeaderboard godoc
// @Summary Export leaderboard
// @Description Download the module leaderboard as CSV or PDF
// @Tags Leaderboard
// @Produce octet-stream
// @Param id path int true "Module ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/leaderboard/export [get]
func (h *ModuleHandler) ExportLeaderboard(c *gin.Context) {
	if !h.exports {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.leaderboard.Export(c.Request.Context(), principal.ID, moduleID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
