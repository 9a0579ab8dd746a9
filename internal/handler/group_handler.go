package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/service"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// GroupHandler exposes teacher-scoped group endpoints.
type GroupHandler struct {
	groups   *service.GroupService
	students *service.StudentService
}

// NewGroupHandler creates a new handler.
func NewGroupHandler(groups *service.GroupService, students *service.StudentService) *GroupHandler {
	return &GroupHandler{groups: groups, students: students}
}

// List godoc
// @Summary List groups
// @Description List the calling teacher's groups
// @Tags Groups
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}

	groups, err := h.groups.List(c.Request.Context(), principal.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}

// Create godoc
// @Summary Create group
// @Description Create a group with a generated join code
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}

	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload"))
		return
	}

	group, err := h.groups.Create(c.Request.Context(), principal.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, group)
}

// Get godoc
// @Summary Get group
// @Description Fetch one owned group
// @Tags Groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	group, err := h.groups.FindOwned(c.Request.Context(), principal.ID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, group, nil)
}

// Finish godoc
// @Summary Finish group
// @Description Mark a group inactive; its join code is retired
// @Tags Groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id}/finish [post]
func (h *GroupHandler) Finish(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.groups.Finish(c.Request.Context(), principal.ID, groupID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Delete godoc
// @Summary Delete group
// @Description Delete a group and cascade its students, modules and grades
// @Tags Groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.groups.Delete(c.Request.Context(), principal.ID, groupID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListStudents godoc
// @Summary List students
// @Description List the students of an owned group
// @Tags Students
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id}/students [get]
func (h *GroupHandler) ListStudents(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	students, err := h.students.List(c.Request.Context(), principal.ID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, nil)
}

// CreateStudent godoc
// @Summary Add student
// @Description Add a student to an owned group
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/groups/{id}/students [post]
func (h *GroupHandler) CreateStudent(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload"))
		return
	}

	student, err := h.students.Create(c.Request.Context(), principal.ID, groupID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, student)
}

// DeleteStudent godoc
// @Summary Remove student
// @Description Remove a student and cascade their grades
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/students/{id} [delete]
func (h *GroupHandler) DeleteStudent(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.students.Delete(c.Request.Context(), principal.ID, studentID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
