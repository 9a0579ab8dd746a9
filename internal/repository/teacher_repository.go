package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// TeacherRepository handles teacher persistence.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListByAdmin returns the teachers owned by the given admin.
func (r *TeacherRepository) ListByAdmin(ctx context.Context, adminID int64) ([]models.Teacher, error) {
	const query = `SELECT id, name, email, password_hash, admin_id, created_at
        FROM teachers WHERE admin_id = $1 ORDER BY id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, adminID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByEmail returns the teacher with the given case-normalized email.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	var teacher models.Teacher
	const query = `SELECT id, name, email, password_hash, admin_id, created_at
        FROM teachers WHERE LOWER(email) = LOWER($1)`
	if err := r.db.GetContext(ctx, &teacher, query, email); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByID returns the teacher with the given id.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	const query = `SELECT id, name, email, password_hash, admin_id, created_at
        FROM teachers WHERE id = $1`
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindOwned returns the teacher only when it belongs to the admin.
// A foreign teacher is indistinguishable from an absent one.
func (r *TeacherRepository) FindOwned(ctx context.Context, id, adminID int64) (*models.Teacher, error) {
	var teacher models.Teacher
	const query = `SELECT id, name, email, password_hash, admin_id, created_at
        FROM teachers WHERE id = $1 AND admin_id = $2`
	if err := r.db.GetContext(ctx, &teacher, query, id, adminID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new teacher and fills in the generated id.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	const query = `INSERT INTO teachers (name, email, password_hash, admin_id)
        VALUES ($1, LOWER($2), $3, $4)
        RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, teacher.Name, teacher.Email, teacher.PasswordHash, teacher.AdminID).
		Scan(&teacher.ID, &teacher.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update renames a teacher and changes its email.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	const query = `UPDATE teachers SET name = $2, email = LOWER($3) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, teacher.ID, teacher.Name, teacher.Email); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes the teacher; the store cascades the ownership chain.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE teachers SET password_hash = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update teacher password: %w", err)
	}
	return nil
}

// EmailExists reports whether any teacher other than excludeID uses
// the email.
func (r *TeacherRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return exists, nil
}

// Stats aggregates counts across the teacher's ownership chain.
func (r *TeacherRepository) Stats(ctx context.Context, teacherID int64) (*models.TeacherStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM groups WHERE teacher_id = $1) AS groups,
        (SELECT COUNT(*) FROM students s JOIN groups g ON s.group_id = g.id WHERE g.teacher_id = $1) AS students,
        (SELECT COUNT(*) FROM modules m JOIN groups g ON m.group_id = g.id WHERE g.teacher_id = $1) AS modules,
        (SELECT COUNT(*) FROM lessons l JOIN modules m ON l.module_id = m.id JOIN groups g ON m.group_id = g.id WHERE g.teacher_id = $1) AS lessons,
        (SELECT COUNT(*) FROM grades gr JOIN students s ON gr.student_id = s.id JOIN groups g ON s.group_id = g.id WHERE g.teacher_id = $1) AS grades`
	var stats models.TeacherStats
	if err := r.db.GetContext(ctx, &stats, query, teacherID); err != nil {
		return nil, fmt.Errorf("teacher stats: %w", err)
	}
	return &stats, nil
}
