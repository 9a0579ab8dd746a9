package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type gradeRepo interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	ListByLesson(ctx context.Context, lessonID int64) ([]models.Grade, error)
}

type gradeLessonReader interface {
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Lesson, error)
}

type gradeCriteriaReader interface {
	FindByID(ctx context.Context, id int64) (*models.Criteria, error)
}

type gradeStudentReader interface {
	FindInGroup(ctx context.Context, id, groupID int64) (*models.Student, error)
}

// leaderboardInvalidator drops cached standings after a grade lands.
type leaderboardInvalidator interface {
	Invalidate(ctx context.Context, moduleID int64)
}

// SubmitGradeRequest is the payload for recording points.
type SubmitGradeRequest struct {
	StudentID    int64 `json:"student_id" validate:"required,gt=0"`
	CriteriaID   int64 `json:"criteria_id" validate:"required,gt=0"`
	PointsEarned int   `json:"points_earned" validate:"gte=0"`
}

// GradeService records points against the (student, criteria, lesson)
// triple. Submissions are idempotent overwrites: resubmitting the same
// triple replaces the stored points instead of stacking rows.
type GradeService struct {
	grades      gradeRepo
	lessons     gradeLessonReader
	modules     moduleOwnershipReader
	criteria    gradeCriteriaReader
	students    gradeStudentReader
	invalidator leaderboardInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService. The invalidator may be
// nil when no leaderboard cache is configured; metrics may be nil.
func NewGradeService(
	grades gradeRepo,
	lessons gradeLessonReader,
	modules moduleOwnershipReader,
	criteria gradeCriteriaReader,
	students gradeStudentReader,
	invalidator leaderboardInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		lessons:     lessons,
		modules:     modules,
		criteria:    criteria,
		students:    students,
		invalidator: invalidator,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Submit records points for a student against a criterion within an
// owned open lesson. The student must belong to the lesson's group and
// the criterion to the lesson's module; points are bounded by the
// criterion's scale.
func (s *GradeService) Submit(ctx context.Context, teacherID, lessonID int64, req SubmitGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	lesson, err := s.lessons.FindOwned(ctx, lessonID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson is already finished")
	}

	module, err := s.modules.FindOwned(ctx, lesson.ModuleID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if !module.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "module is not active")
	}

	criteria, err := s.criteria.FindByID(ctx, req.CriteriaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "criteria not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load criteria")
	}
	if criteria.ModuleID != module.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "criteria not found")
	}
	if req.PointsEarned > criteria.MaxPoints {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("points must be between 0 and %d", criteria.MaxPoints))
	}

	if _, err := s.students.FindInGroup(ctx, req.StudentID, module.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grade := &models.Grade{
		PointsEarned: req.PointsEarned,
		StudentID:    req.StudentID,
		CriteriaID:   req.CriteriaID,
		LessonID:     lesson.ID,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.metrics.RecordGradeSubmission()
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, module.ID)
	}
	return grade, nil
}

// ListByLesson returns the grades recorded for an owned lesson.
func (s *GradeService) ListByLesson(ctx context.Context, teacherID, lessonID int64) ([]models.Grade, error) {
	if _, err := s.lessons.FindOwned(ctx, lessonID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	grades, err := s.grades.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}
