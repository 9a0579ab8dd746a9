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
	"github.com/grouptable/grouptable-api/pkg/groupcode"
)

type groupRepo interface {
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Group, error)
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error)
	FindByCode(ctx context.Context, code string) (*models.Group, error)
	CountActiveByTeacher(ctx context.Context, teacherID int64) (int, error)
	CodeSequence(ctx context.Context) (int, error)
	CreateWithCode(ctx context.Context, group *models.Group) error
	Finish(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required"`
}

// GroupService manages a teacher's groups and their join codes.
type GroupService struct {
	groups    groupRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs a GroupService.
func NewGroupService(groups groupRepo, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, validator: validate, logger: logger}
}

// List returns the teacher's groups.
func (s *GroupService) List(ctx context.Context, teacherID int64) ([]models.Group, error) {
	groups, err := s.groups.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Create makes a new group with a freshly issued join code. A teacher
// may hold at most MaxActiveGroupsPerTeacher active groups; finishing
// a group frees a slot.
func (s *GroupService) Create(ctx context.Context, teacherID int64, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	active, err := s.groups.CountActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count groups")
	}
	if active >= models.MaxActiveGroupsPerTeacher {
		return nil, appErrors.Clone(appErrors.ErrConflict, "maximum of 6 active groups reached")
	}

	sequence, err := s.groups.CodeSequence(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read code sequence")
	}

	group := &models.Group{Name: req.Name, TeacherID: teacherID}
	for attempt := 0; attempt < groupcode.MaxAttempts; attempt++ {
		group.Code = groupcode.Next(sequence + 1 + attempt)
		err = s.groups.CreateWithCode(ctx, group)
		if err == nil {
			s.logger.Info("group created",
				zap.Int64("group_id", group.ID),
				zap.String("code", group.Code),
				zap.Int64("teacher_id", teacherID))
			return group, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
		}
		// Collision with a concurrently issued code; try the next one.
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "exhausted join code candidates")
}

// Finish marks an owned group inactive.
func (s *GroupService) Finish(ctx context.Context, teacherID, groupID int64) error {
	group, err := s.findOwned(ctx, teacherID, groupID)
	if err != nil {
		return err
	}
	if err := s.groups.Finish(ctx, group.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish group")
	}
	return nil
}

// Delete removes an owned group with everything beneath it. The join
// code stays reserved forever.
func (s *GroupService) Delete(ctx context.Context, teacherID, groupID int64) error {
	group, err := s.findOwned(ctx, teacherID, groupID)
	if err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, group.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	s.logger.Info("group deleted", zap.Int64("group_id", groupID), zap.Int64("teacher_id", teacherID))
	return nil
}

// FindByCode resolves a group by its public join code.
func (s *GroupService) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	group, err := s.groups.FindByCode(ctx, groupcode.Normalize(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// FindOwned resolves a group owned by the teacher.
func (s *GroupService) FindOwned(ctx context.Context, teacherID, groupID int64) (*models.Group, error) {
	return s.findOwned(ctx, teacherID, groupID)
}

func (s *GroupService) findOwned(ctx context.Context, teacherID, groupID int64) (*models.Group, error) {
	group, err := s.groups.FindOwned(ctx, groupID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}
