package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	"github.com/grouptable/grouptable-api/internal/repository"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type lessonRepo interface {
	ListByModule(ctx context.Context, moduleID int64) ([]models.Lesson, error)
	CountByModule(ctx context.Context, moduleID int64) (int, error)
	HasActiveInModule(ctx context.Context, moduleID int64) (bool, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Lesson, error)
	Finish(ctx context.Context, id int64) error
	MaxNumberInModule(ctx context.Context, moduleID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type moduleOwnershipReader interface {
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error)
}

// CreateLessonRequest is the payload for opening a lesson.
type CreateLessonRequest struct {
	Name string `json:"name" validate:"required"`
}

// LessonService manages grading sessions within a module. Only one
// lesson per module is open at a time, numbering is contiguous and
// only the tail lesson may be deleted.
type LessonService struct {
	lessons   lessonRepo
	modules   moduleOwnershipReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs a LessonService.
func NewLessonService(lessons lessonRepo, modules moduleOwnershipReader, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{lessons: lessons, modules: modules, validator: validate, logger: logger}
}

// List returns the lessons of an owned module in number order.
func (s *LessonService) List(ctx context.Context, teacherID, moduleID int64) ([]models.Lesson, error) {
	if _, err := s.ownedModule(ctx, teacherID, moduleID); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Create opens a new grading session. The module must still be
// active, no other lesson may be open, and the module must be under
// its lesson cap. Numbers are assigned sequentially and never reused.
func (s *LessonService) Create(ctx context.Context, teacherID, moduleID int64, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	module, err := s.ownedModule(ctx, teacherID, moduleID)
	if err != nil {
		return nil, err
	}
	if !module.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "module is not active")
	}

	open, err := s.lessons.HasActiveInModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open lesson")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "another lesson is still open")
	}

	count, err := s.lessons.CountByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}
	if count >= models.MaxLessonsPerModule {
		return nil, appErrors.Clone(appErrors.ErrConflict, "maximum of 15 lessons per module reached")
	}

	// Tail deletion keeps numbering contiguous, so max+1 never
	// collides with a number already in use.
	maxNumber, err := s.lessons.MaxNumberInModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve lesson number")
	}

	lesson := &models.Lesson{Name: req.Name, LessonNumber: maxNumber + 1, ModuleID: moduleID}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another lesson is still open")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// Finish closes an owned grading session.
func (s *LessonService) Finish(ctx context.Context, teacherID, lessonID int64) error {
	lesson, err := s.ownedLesson(ctx, teacherID, lessonID)
	if err != nil {
		return err
	}
	if err := s.lessons.Finish(ctx, lesson.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish lesson")
	}
	return nil
}

// Delete removes a lesson, allowed only for the highest-numbered
// lesson of its module so the numbering stays gapless.
func (s *LessonService) Delete(ctx context.Context, teacherID, lessonID int64) error {
	lesson, err := s.ownedLesson(ctx, teacherID, lessonID)
	if err != nil {
		return err
	}

	maxNumber, err := s.lessons.MaxNumberInModule(ctx, lesson.ModuleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve lesson number")
	}
	if lesson.LessonNumber != maxNumber {
		return appErrors.Clone(appErrors.ErrConflict, "only the most recent lesson can be deleted")
	}

	if err := s.lessons.Delete(ctx, lesson.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

func (s *LessonService) ownedModule(ctx context.Context, teacherID, moduleID int64) (*models.Module, error) {
	module, err := s.modules.FindOwned(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

func (s *LessonService) ownedLesson(ctx context.Context, teacherID, lessonID int64) (*models.Lesson, error) {
	lesson, err := s.lessons.FindOwned(ctx, lessonID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}
