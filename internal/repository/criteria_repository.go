package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// CriteriaRepository handles grading criteria persistence.
type CriteriaRepository struct {
	db *sqlx.DB
}

// NewCriteriaRepository creates a new criteria repository.
func NewCriteriaRepository(db *sqlx.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// ListByModule returns the criteria of a module.
func (r *CriteriaRepository) ListByModule(ctx context.Context, moduleID int64) ([]models.Criteria, error) {
	const query = `SELECT id, name, max_points, grading_method, module_id, created_at
        FROM criteria WHERE module_id = $1 ORDER BY id`
	var criteria []models.Criteria
	if err := r.db.SelectContext(ctx, &criteria, query, moduleID); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return criteria, nil
}

// CountByModule counts the criteria of a module.
func (r *CriteriaRepository) CountByModule(ctx context.Context, moduleID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM criteria WHERE module_id = $1`, moduleID); err != nil {
		return 0, fmt.Errorf("count criteria: %w", err)
	}
	return count, nil
}

// Create inserts a new criterion and fills in the generated id.
func (r *CriteriaRepository) Create(ctx context.Context, criteria *models.Criteria) error {
	const query = `INSERT INTO criteria (name, max_points, grading_method, module_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, criteria.Name, criteria.MaxPoints, criteria.GradingMethod, criteria.ModuleID).
		Scan(&criteria.ID, &criteria.CreatedAt)
	if err != nil {
		return fmt.Errorf("create criteria: %w", err)
	}
	return nil
}

// FindOwned returns the criterion only when the chain resolves to the
// teacher.
func (r *CriteriaRepository) FindOwned(ctx context.Context, id, teacherID int64) (*models.Criteria, error) {
	var criteria models.Criteria
	const query = `SELECT c.id, c.name, c.max_points, c.grading_method, c.module_id, c.created_at
        FROM criteria c
        JOIN modules m ON c.module_id = m.id
        JOIN groups g ON m.group_id = g.id
        WHERE c.id = $1 AND g.teacher_id = $2`
	if err := r.db.GetContext(ctx, &criteria, query, id, teacherID); err != nil {
		return nil, err
	}
	return &criteria, nil
}

// FindByID returns a criterion regardless of ownership; callers must
// have already resolved the chain.
func (r *CriteriaRepository) FindByID(ctx context.Context, id int64) (*models.Criteria, error) {
	var criteria models.Criteria
	const query = `SELECT id, name, max_points, grading_method, module_id, created_at
        FROM criteria WHERE id = $1`
	if err := r.db.GetContext(ctx, &criteria, query, id); err != nil {
		return nil, err
	}
	return &criteria, nil
}

// Update renames a criterion and adjusts its scale.
func (r *CriteriaRepository) Update(ctx context.Context, criteria *models.Criteria) error {
	const query = `UPDATE criteria SET name = $2, max_points = $3, grading_method = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, criteria.ID, criteria.Name, criteria.MaxPoints, criteria.GradingMethod); err != nil {
		return fmt.Errorf("update criteria: %w", err)
	}
	return nil
}

// Delete removes the criterion and cascades its grades.
func (r *CriteriaRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM criteria WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete criteria: %w", err)
	}
	return nil
}
