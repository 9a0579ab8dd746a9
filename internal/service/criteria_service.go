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

type criteriaRepo interface {
	ListByModule(ctx context.Context, moduleID int64) ([]models.Criteria, error)
	CountByModule(ctx context.Context, moduleID int64) (int, error)
	Create(ctx context.Context, criteria *models.Criteria) error
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Criteria, error)
	Update(ctx context.Context, criteria *models.Criteria) error
	Delete(ctx context.Context, id int64) error
}

// CreateCriteriaRequest is the payload for adding a criterion.
type CreateCriteriaRequest struct {
	Name          string `json:"name" validate:"required"`
	MaxPoints     int    `json:"max_points" validate:"required,gt=0"`
	GradingMethod string `json:"grading_method" validate:"required"`
}

// UpdateCriteriaRequest is the payload for editing a criterion.
type UpdateCriteriaRequest struct {
	Name          string `json:"name" validate:"required"`
	MaxPoints     int    `json:"max_points" validate:"required,gt=0"`
	GradingMethod string `json:"grading_method" validate:"required"`
}

// CriteriaService manages the point scales of a module. Criteria can
// only be changed while their module is active; grades already
// recorded against a criterion are not revalidated when its scale
// shrinks.
type CriteriaService struct {
	criteria  criteriaRepo
	modules   moduleOwnershipReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCriteriaService constructs a CriteriaService.
func NewCriteriaService(criteria criteriaRepo, modules moduleOwnershipReader, validate *validator.Validate, logger *zap.Logger) *CriteriaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CriteriaService{criteria: criteria, modules: modules, validator: validate, logger: logger}
}

// List returns the criteria of an owned module.
func (s *CriteriaService) List(ctx context.Context, teacherID, moduleID int64) ([]models.Criteria, error) {
	if _, err := s.activeModule(ctx, teacherID, moduleID, false); err != nil {
		return nil, err
	}
	criteria, err := s.criteria.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list criteria")
	}
	return criteria, nil
}

// Create adds a criterion to an active owned module.
func (s *CriteriaService) Create(ctx context.Context, teacherID, moduleID int64, req CreateCriteriaRequest) (*models.Criteria, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criteria payload")
	}
	method, ok := models.ParseGradingMethod(req.GradingMethod)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grading method")
	}

	if _, err := s.activeModule(ctx, teacherID, moduleID, true); err != nil {
		return nil, err
	}

	count, err := s.criteria.CountByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count criteria")
	}
	if count >= models.MaxCriteriaPerModule {
		return nil, appErrors.Clone(appErrors.ErrConflict, "maximum of 6 criteria per module reached")
	}

	criteria := &models.Criteria{
		Name:          req.Name,
		MaxPoints:     req.MaxPoints,
		GradingMethod: method,
		ModuleID:      moduleID,
	}
	if err := s.criteria.Create(ctx, criteria); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create criteria")
	}
	return criteria, nil
}

// Update edits an owned criterion while its module is still active.
// Existing grades keep their recorded points even when the maximum is
// lowered below them.
func (s *CriteriaService) Update(ctx context.Context, teacherID, criteriaID int64, req UpdateCriteriaRequest) (*models.Criteria, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criteria payload")
	}
	method, ok := models.ParseGradingMethod(req.GradingMethod)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grading method")
	}

	criteria, err := s.ownedCriteria(ctx, teacherID, criteriaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeModule(ctx, teacherID, criteria.ModuleID, true); err != nil {
		return nil, err
	}

	criteria.Name = req.Name
	criteria.MaxPoints = req.MaxPoints
	criteria.GradingMethod = method
	if err := s.criteria.Update(ctx, criteria); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update criteria")
	}
	return criteria, nil
}

// Delete removes an owned criterion and, through the schema cascade,
// every grade recorded against it. The module must still be active.
func (s *CriteriaService) Delete(ctx context.Context, teacherID, criteriaID int64) error {
	criteria, err := s.ownedCriteria(ctx, teacherID, criteriaID)
	if err != nil {
		return err
	}
	if _, err := s.activeModule(ctx, teacherID, criteria.ModuleID, true); err != nil {
		return err
	}
	if err := s.criteria.Delete(ctx, criteria.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete criteria")
	}
	return nil
}

func (s *CriteriaService) activeModule(ctx context.Context, teacherID, moduleID int64, requireActive bool) (*models.Module, error) {
	module, err := s.modules.FindOwned(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if requireActive && !module.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "module is not active")
	}
	return module, nil
}

func (s *CriteriaService) ownedCriteria(ctx context.Context, teacherID, criteriaID int64) (*models.Criteria, error) {
	criteria, err := s.criteria.FindOwned(ctx, criteriaID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "criteria not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load criteria")
	}
	return criteria, nil
}
