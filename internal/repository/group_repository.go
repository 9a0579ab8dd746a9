package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// GroupRepository handles group persistence and the issued-code ledger.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListByTeacher returns the teacher's groups.
func (r *GroupRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Group, error) {
	const query = `SELECT id, name, code, is_active, teacher_id, created_at
        FROM groups WHERE teacher_id = $1 ORDER BY id`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, teacherID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindOwned returns the group only when the teacher owns it.
func (r *GroupRepository) FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error) {
	var group models.Group
	const query = `SELECT id, name, code, is_active, teacher_id, created_at
        FROM groups WHERE id = $1 AND teacher_id = $2`
	if err := r.db.GetContext(ctx, &group, query, id, teacherID); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByCode resolves a group by its public join code.
func (r *GroupRepository) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	var group models.Group
	const query = `SELECT id, name, code, is_active, teacher_id, created_at
        FROM groups WHERE code = $1`
	if err := r.db.GetContext(ctx, &group, query, code); err != nil {
		return nil, err
	}
	return &group, nil
}

// CountActiveByTeacher counts the teacher's active groups. Finished
// groups do not count against the cap.
func (r *GroupRepository) CountActiveByTeacher(ctx context.Context, teacherID int64) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM groups WHERE teacher_id = $1 AND is_active`
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count active groups: %w", err)
	}
	return count, nil
}

// CodeSequence returns the number of codes ever issued. The ledger
// only grows, so the count doubles as the next sequence hint.
func (r *GroupRepository) CodeSequence(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM group_codes`); err != nil {
		return 0, fmt.Errorf("code sequence: %w", err)
	}
	return count, nil
}

// CreateWithCode records the code in the ledger and inserts the group
// in one transaction, so no group exists without a code and no issued
// code is ever reused. A code collision surfaces as ErrDuplicate for
// the caller's regenerate-and-retry loop.
func (r *GroupRepository) CreateWithCode(ctx context.Context, group *models.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO group_codes (code) VALUES ($1)`, group.Code); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("record group code: %w", err)
	}

	const query = `INSERT INTO groups (name, code, is_active, teacher_id)
        VALUES ($1, $2, TRUE, $3)
        RETURNING id, is_active, created_at`
	err = tx.QueryRowxContext(ctx, query, group.Name, group.Code, group.TeacherID).
		Scan(&group.ID, &group.IsActive, &group.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create group: %w", err)
	}
	return nil
}

// Finish marks the group inactive, freeing one slot under the active
// group cap.
func (r *GroupRepository) Finish(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE groups SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("finish group: %w", err)
	}
	return nil
}

// Delete removes the group; the store cascades students, modules and
// everything beneath. The code stays in the ledger.
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
