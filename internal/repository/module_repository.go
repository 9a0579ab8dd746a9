package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// ModuleRepository handles module persistence.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository creates a new module repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByGroup returns the modules of a group, oldest first.
func (r *ModuleRepository) ListByGroup(ctx context.Context, groupID int64) ([]models.Module, error) {
	const query = `SELECT id, name, is_active, is_finished, group_id, created_at
        FROM modules WHERE group_id = $1 ORDER BY id`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, groupID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindOwned returns the module only when the chain resolves to the
// teacher.
func (r *ModuleRepository) FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error) {
	var module models.Module
	const query = `SELECT m.id, m.name, m.is_active, m.is_finished, m.group_id, m.created_at
        FROM modules m
        JOIN groups g ON m.group_id = g.id
        WHERE m.id = $1 AND g.teacher_id = $2`
	if err := r.db.GetContext(ctx, &module, query, id, teacherID); err != nil {
		return nil, err
	}
	return &module, nil
}

// FindInGroup returns the module only when it belongs to the group.
func (r *ModuleRepository) FindInGroup(ctx context.Context, id, groupID int64) (*models.Module, error) {
	var module models.Module
	const query = `SELECT id, name, is_active, is_finished, group_id, created_at
        FROM modules WHERE id = $1 AND group_id = $2`
	if err := r.db.GetContext(ctx, &module, query, id, groupID); err != nil {
		return nil, err
	}
	return &module, nil
}

// HasActiveInGroup reports whether the group already has an active
// module. Grading periods are serialized per group.
func (r *ModuleRepository) HasActiveInGroup(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM modules WHERE group_id = $1 AND is_active)`
	if err := r.db.GetContext(ctx, &exists, query, groupID); err != nil {
		return false, fmt.Errorf("check active module: %w", err)
	}
	return exists, nil
}

// Create inserts a new active module. The partial unique index on
// (group_id) WHERE is_active makes the one-active-module invariant
// race-free; a violation surfaces as ErrDuplicate.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	const query = `INSERT INTO modules (name, group_id)
        VALUES ($1, $2)
        RETURNING id, is_active, is_finished, created_at`
	err := r.db.QueryRowxContext(ctx, query, module.Name, module.GroupID).
		Scan(&module.ID, &module.IsActive, &module.IsFinished, &module.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Finish transitions the module to its terminal state.
func (r *ModuleRepository) Finish(ctx context.Context, id int64) error {
	const query = `UPDATE modules SET is_active = FALSE, is_finished = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("finish module: %w", err)
	}
	return nil
}

// LatestIDInGroup returns the id of the most recently created module
// in the group, or 0 when the group has none.
func (r *ModuleRepository) LatestIDInGroup(ctx context.Context, groupID int64) (int64, error) {
	var id int64
	const query = `SELECT id FROM modules WHERE group_id = $1 ORDER BY id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &id, query, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest module: %w", err)
	}
	return id, nil
}

// Delete removes the module and cascades lessons, criteria and grades.
func (r *ModuleRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return nil
}
