package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type studentRepo interface {
	ListByGroup(ctx context.Context, groupID int64) ([]models.Student, error)
	CountByGroup(ctx context.Context, groupID int64) (int, error)
	Create(ctx context.Context, student *models.Student) error
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Student, error)
	Delete(ctx context.Context, id int64) error
}

type groupOwnershipReader interface {
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error)
}

// CreateStudentRequest is the payload for adding a student.
type CreateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
}

// StudentService manages group rosters.
type StudentService struct {
	students  studentRepo
	groups    groupOwnershipReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepo, groups groupOwnershipReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, groups: groups, validator: validate, logger: logger}
}

// List returns the students of an owned group.
func (s *StudentService) List(ctx context.Context, teacherID, groupID int64) ([]models.Student, error) {
	if _, err := s.ownedGroup(ctx, teacherID, groupID); err != nil {
		return nil, err
	}
	students, err := s.students.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Create adds a student to an owned group, up to the group size cap.
func (s *StudentService) Create(ctx context.Context, teacherID, groupID int64, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.ownedGroup(ctx, teacherID, groupID); err != nil {
		return nil, err
	}

	count, err := s.students.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if count >= models.MaxStudentsPerGroup {
		return nil, appErrors.Clone(appErrors.ErrConflict, "maximum of 30 students per group reached")
	}

	student := &models.Student{FullName: req.FullName, GroupID: groupID}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Delete removes a student whose chain resolves to the teacher.
func (s *StudentService) Delete(ctx context.Context, teacherID, studentID int64) error {
	student, err := s.students.FindOwned(ctx, studentID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.students.Delete(ctx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) ownedGroup(ctx context.Context, teacherID, groupID int64) (*models.Group, error) {
	group, err := s.groups.FindOwned(ctx, groupID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}
