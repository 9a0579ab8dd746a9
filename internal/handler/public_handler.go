package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/service"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// PublicHandler exposes unauthenticated endpoints keyed by group join
// code. Responses never include teacher or admin identifiers.
type PublicHandler struct {
	groups      *service.GroupService
	modules     *service.ModuleService
	leaderboard *service.LeaderboardService
	exports     bool
}

// NewPublicHandler creates a new handler.
func NewPublicHandler(groups *service.GroupService, modules *service.ModuleService, leaderboard *service.LeaderboardService, exports bool) *PublicHandler {
	return &PublicHandler{groups: groups, modules: modules, leaderboard: leaderboard, exports: exports}
}

// Group godoc
// @Summary Look up group by code
// @Description Resolve a join code to the group's public info
// @Tags Public
// @Produce json
// @Param code path string true "Group join code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/groups/{code} [get]
func (h *PublicHandler) Group(c *gin.Context) {
	group, err := h.groups.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"name":      group.Name,
		"code":      group.Code,
		"is_active": group.IsActive,
	}, nil)
}

// Modules godoc
// @Summary Public module list
// @Description All grading periods of the group, by join code
// @Tags Public
// @Produce json
// @Param code path string true "Group join code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/groups/{code}/modules [get]
func (h *PublicHandler) Modules(c *gin.Context) {
	modules, err := h.modules.ListByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, modules, nil)
}

// Leaderboard godoc
// @Summary Public leaderboard
// @Description Standings of the group's most recent module, by join code
// @Tags Public
// @Produce json
// @Param code path string true "Group join code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/groups/{code}/leaderboard [get]
func (h *PublicHandler) Leaderboard(c *gin.Context) {
	entries, err := h.leaderboard.ForPublic(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ModuleLeaderboard godoc
// @Summary Public module leaderboard
// @Description Standings of a specific module of the group, by join code
// @Tags Public
// @Produce json
// @Param code path string true "Group join code"
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/groups/{code}/modules/{id}/leaderboard [get]
func (h *PublicHandler) ModuleLeaderboard(c *gin.Context) {
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.leaderboard.ForPublicModule(c.Request.Context(), c.Param("code"), moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportLeaderboard godoc
// @Summary Export public leaderboard
// @Description Download the latest module's leaderboard as CSV or PDF, by join code
// @Tags Public
// @Produce octet-stream
// @Param code path string true "Group join code"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /public/groups/{code}/leaderboard/export [get]
func (h *PublicHandler) ExportLeaderboard(c *gin.Context) {
	if !h.exports {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.leaderboard.ExportPublic(c.Request.Context(), c.Param("code"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
