package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/service"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// LessonHandler exposes teacher-scoped lesson and grading endpoints.
type LessonHandler struct {
	lessons *service.LessonService
	grades  *service.GradeService
}

// NewLessonHandler creates a new handler.
func NewLessonHandler(lessons *service.LessonService, grades *service.GradeService) *LessonHandler {
	return &LessonHandler{lessons: lessons, grades: grades}
}

// List godoc
// @Summary List lessons
// @Description List the lessons of an owned module in number order
// @Tags Lessons
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lessons, err := h.lessons.List(c.Request.Context(), principal.ID, moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lessons, nil)
}

// Create godoc
// @Summary Open lesson
// @Description Open a new grading session in an active owned module
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/modules/{id}/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload"))
		return
	}

	lesson, err := h.lessons.Create(c.Request.Context(), principal.ID, moduleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, lesson)
}

// Finish godoc
// @Summary Finish lesson
// @Description Close an open grading session
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/lessons/{id}/finish [post]
func (h *LessonHandler) Finish(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lessons.Finish(c.Request.Context(), principal.ID, lessonID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Delete godoc
// @Summary Delete lesson
// @Description Delete the highest-numbered lesson of its module
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lessons.Delete(c.Request.Context(), principal.ID, lessonID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// SubmitGrade godoc
// @Summary Submit grade
// @Description Record or overwrite points for a student in an open lesson
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param payload body service.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/lessons/{id}/grades [post]
func (h *LessonHandler) SubmitGrade(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.SubmitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload"))
		return
	}

	grade, err := h.grades.Submit(c.Request.Context(), principal.ID, lessonID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grade, nil)
}

// ListGrades godoc
// @Summary List lesson grades
// @Description List the grades recorded for an owned lesson
// @Tags Grades
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/lessons/{id}/grades [get]
func (h *LessonHandler) ListGrades(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "id")
	if !ok {
		return
	}

	grades, err := h.grades.ListByLesson(c.Request.Context(), principal.ID, lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}
