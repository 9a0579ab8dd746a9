package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// StudentRepository handles student persistence.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByGroup returns the students of a group.
func (r *StudentRepository) ListByGroup(ctx context.Context, groupID int64) ([]models.Student, error) {
	const query = `SELECT id, full_name, group_id, added_at
        FROM students WHERE group_id = $1 ORDER BY id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// CountByGroup counts the students of a group.
func (r *StudentRepository) CountByGroup(ctx context.Context, groupID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE group_id = $1`, groupID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// Create inserts a new student and fills in the generated id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (full_name, group_id)
        VALUES ($1, $2)
        RETURNING id, added_at`
	err := r.db.QueryRowxContext(ctx, query, student.FullName, student.GroupID).
		Scan(&student.ID, &student.AddedAt)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindOwned returns the student only when the chain resolves to the
// teacher.
func (r *StudentRepository) FindOwned(ctx context.Context, id, teacherID int64) (*models.Student, error) {
	var student models.Student
	const query = `SELECT s.id, s.full_name, s.group_id, s.added_at
        FROM students s
        JOIN groups g ON s.group_id = g.id
        WHERE s.id = $1 AND g.teacher_id = $2`
	if err := r.db.GetContext(ctx, &student, query, id, teacherID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindInGroup returns the student only when it belongs to the group.
func (r *StudentRepository) FindInGroup(ctx context.Context, id, groupID int64) (*models.Student, error) {
	var student models.Student
	const query = `SELECT id, full_name, group_id, added_at
        FROM students WHERE id = $1 AND group_id = $2`
	if err := r.db.GetContext(ctx, &student, query, id, groupID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Delete removes the student and, by cascade, its grades.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
