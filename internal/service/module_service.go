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

type moduleRepo interface {
	ListByGroup(ctx context.Context, groupID int64) ([]models.Module, error)
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error)
	HasActiveInGroup(ctx context.Context, groupID int64) (bool, error)
	Create(ctx context.Context, module *models.Module) error
	Finish(ctx context.Context, id int64) error
	LatestIDInGroup(ctx context.Context, groupID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type moduleGroupReader interface {
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error)
	FindByCode(ctx context.Context, code string) (*models.Group, error)
}

// CreateModuleRequest is the payload for creating a module.
type CreateModuleRequest struct {
	Name string `json:"name" validate:"required"`
}

// ModuleService manages grading periods. Modules follow a one-way
// active → finished state machine and at most one module per group is
// active at a time.
type ModuleService struct {
	modules   moduleRepo
	groups    moduleGroupReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs a ModuleService.
func NewModuleService(modules moduleRepo, groups moduleGroupReader, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{modules: modules, groups: groups, validator: validate, logger: logger}
}

// List returns the modules of an owned group.
func (s *ModuleService) List(ctx context.Context, teacherID, groupID int64) ([]models.Module, error) {
	if err := s.checkGroup(ctx, teacherID, groupID); err != nil {
		return nil, err
	}
	modules, err := s.modules.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// Create starts a new grading period. Fails with a conflict while the
// group still has an active module; the partial unique index backs
// this under concurrency.
func (s *ModuleService) Create(ctx context.Context, teacherID, groupID int64, req CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	if err := s.checkGroup(ctx, teacherID, groupID); err != nil {
		return nil, err
	}

	active, err := s.modules.HasActiveInGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active module")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group already has an active module")
	}

	module := &models.Module{Name: req.Name, GroupID: groupID}
	if err := s.modules.Create(ctx, module); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "group already has an active module")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	return module, nil
}

// Finish transitions an owned module to its terminal finished state.
func (s *ModuleService) Finish(ctx context.Context, teacherID, moduleID int64) error {
	module, err := s.findOwned(ctx, teacherID, moduleID)
	if err != nil {
		return err
	}
	if module.IsFinished {
		return appErrors.Clone(appErrors.ErrConflict, "module is already finished")
	}
	if err := s.modules.Finish(ctx, module.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish module")
	}
	return nil
}

// Delete removes an owned module. Only the most recently created
// module of its group may be deleted, and only while still active:
// finished modules are the historical record.
func (s *ModuleService) Delete(ctx context.Context, teacherID, moduleID int64) error {
	module, err := s.findOwned(ctx, teacherID, moduleID)
	if err != nil {
		return err
	}
	if !module.IsActive || module.IsFinished {
		return appErrors.Clone(appErrors.ErrConflict, "finished modules cannot be deleted")
	}

	latest, err := s.modules.LatestIDInGroup(ctx, module.GroupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve latest module")
	}
	if latest != module.ID {
		return appErrors.Clone(appErrors.ErrConflict, "only the most recent module can be deleted")
	}

	if err := s.modules.Delete(ctx, module.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}
	s.logger.Info("module deleted", zap.Int64("module_id", moduleID), zap.Int64("teacher_id", teacherID))
	return nil
}

// ListByCode returns a group's modules for the public surface, looked
// up by join code.
func (s *ModuleService) ListByCode(ctx context.Context, code string) ([]models.Module, error) {
	group, err := s.groups.FindByCode(ctx, groupcode.Normalize(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	modules, err := s.modules.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// FindOwned resolves a module whose chain ends at the teacher.
func (s *ModuleService) FindOwned(ctx context.Context, teacherID, moduleID int64) (*models.Module, error) {
	return s.findOwned(ctx, teacherID, moduleID)
}

func (s *ModuleService) findOwned(ctx context.Context, teacherID, moduleID int64) (*models.Module, error) {
	module, err := s.modules.FindOwned(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

func (s *ModuleService) checkGroup(ctx context.Context, teacherID, groupID int64) error {
	if _, err := s.groups.FindOwned(ctx, groupID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return nil
}
