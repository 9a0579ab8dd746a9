package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/grouptable/grouptable-api/internal/models"
	"github.com/grouptable/grouptable-api/internal/repository"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type teacherRepo interface {
	ListByAdmin(ctx context.Context, adminID int64) ([]models.Teacher, error)
	FindOwned(ctx context.Context, id, adminID int64) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	Stats(ctx context.Context, teacherID int64) (*models.TeacherStats, error)
}

type adminEmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// CreateTeacherRequest is the payload for creating a teacher account.
type CreateTeacherRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateTeacherRequest renames a teacher or changes its email.
type UpdateTeacherRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// ResetTeacherPasswordRequest sets a teacher's password without
// knowing the old one; admin-only.
type ResetTeacherPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// TeacherService manages teacher accounts on behalf of admins.
type TeacherService struct {
	teachers  teacherRepo
	admins    adminEmailChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherRepo, admins adminEmailChecker, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, admins: admins, validator: validate, logger: logger}
}

// List returns the admin's teachers.
func (s *TeacherService) List(ctx context.Context, adminID int64) ([]models.Teacher, error) {
	teachers, err := s.teachers.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Create adds a teacher under the admin. The email must be unused
// across both principal tables.
func (s *TeacherService) Create(ctx context.Context, adminID int64, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	if err := s.checkEmailFree(ctx, req.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	teacher := &models.Teacher{
		Name:         req.Name,
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		AdminID:      adminID,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.logger.Info("teacher created", zap.Int64("teacher_id", teacher.ID), zap.Int64("admin_id", adminID))
	return teacher, nil
}

// Update renames an owned teacher or changes its email.
func (s *TeacherService) Update(ctx context.Context, adminID, teacherID int64, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.findOwned(ctx, adminID, teacherID)
	if err != nil {
		return nil, err
	}

	if normalizeEmail(req.Email) != teacher.Email {
		if err := s.checkEmailFree(ctx, req.Email, teacherID); err != nil {
			return nil, err
		}
	}

	teacher.Name = req.Name
	teacher.Email = normalizeEmail(req.Email)
	if err := s.teachers.Update(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes an owned teacher; the store cascades its groups,
// students, modules, lessons, criteria and grades.
func (s *TeacherService) Delete(ctx context.Context, adminID, teacherID int64) error {
	teacher, err := s.findOwned(ctx, adminID, teacherID)
	if err != nil {
		return err
	}
	if err := s.teachers.Delete(ctx, teacher.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.Int64("teacher_id", teacherID), zap.Int64("admin_id", adminID))
	return nil
}

// ResetPassword sets a new password for an owned teacher.
func (s *TeacherService) ResetPassword(ctx context.Context, adminID, teacherID int64, req ResetTeacherPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	teacher, err := s.findOwned(ctx, adminID, teacherID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.teachers.UpdatePassword(ctx, teacher.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// Stats aggregates counts across an owned teacher's chain.
func (s *TeacherService) Stats(ctx context.Context, adminID, teacherID int64) (*models.TeacherStats, error) {
	teacher, err := s.findOwned(ctx, adminID, teacherID)
	if err != nil {
		return nil, err
	}
	stats, err := s.teachers.Stats(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher stats")
	}
	return stats, nil
}

func (s *TeacherService) findOwned(ctx context.Context, adminID, teacherID int64) (*models.Teacher, error) {
	teacher, err := s.teachers.FindOwned(ctx, teacherID, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) checkEmailFree(ctx context.Context, email string, excludeTeacherID int64) error {
	taken, err := s.teachers.EmailExists(ctx, email, excludeTeacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if !taken {
		taken, err = s.admins.EmailExists(ctx, email)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return nil
}
