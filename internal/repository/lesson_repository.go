package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// LessonRepository handles lesson persistence.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByModule returns the lessons of a module in number order.
func (r *LessonRepository) ListByModule(ctx context.Context, moduleID int64) ([]models.Lesson, error) {
	const query = `SELECT id, name, lesson_number, is_active, module_id, created_at
        FROM lessons WHERE module_id = $1 ORDER BY lesson_number`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, moduleID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// CountByModule counts the lessons of a module.
func (r *LessonRepository) CountByModule(ctx context.Context, moduleID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM lessons WHERE module_id = $1`, moduleID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}

// HasActiveInModule reports whether a grading session is still open.
func (r *LessonRepository) HasActiveInModule(ctx context.Context, moduleID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM lessons WHERE module_id = $1 AND is_active)`
	if err := r.db.GetContext(ctx, &exists, query, moduleID); err != nil {
		return false, fmt.Errorf("check active lesson: %w", err)
	}
	return exists, nil
}

// Create inserts a new active lesson. The partial unique index on
// (module_id) WHERE is_active backs the single-open-session invariant.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	const query = `INSERT INTO lessons (name, lesson_number, module_id)
        VALUES ($1, $2, $3)
        RETURNING id, is_active, created_at`
	err := r.db.QueryRowxContext(ctx, query, lesson.Name, lesson.LessonNumber, lesson.ModuleID).
		Scan(&lesson.ID, &lesson.IsActive, &lesson.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// FindOwned returns the lesson only when the full chain resolves to
// the teacher.
func (r *LessonRepository) FindOwned(ctx context.Context, id, teacherID int64) (*models.Lesson, error) {
	var lesson models.Lesson
	const query = `SELECT l.id, l.name, l.lesson_number, l.is_active, l.module_id, l.created_at
        FROM lessons l
        JOIN modules m ON l.module_id = m.id
        JOIN groups g ON m.group_id = g.id
        WHERE l.id = $1 AND g.teacher_id = $2`
	if err := r.db.GetContext(ctx, &lesson, query, id, teacherID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Finish closes the grading session.
func (r *LessonRepository) Finish(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE lessons SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("finish lesson: %w", err)
	}
	return nil
}

// MaxNumberInModule returns the highest lesson number in the module,
// or 0 when it has none.
func (r *LessonRepository) MaxNumberInModule(ctx context.Context, moduleID int64) (int, error) {
	var number int
	const query = `SELECT lesson_number FROM lessons WHERE module_id = $1 ORDER BY lesson_number DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &number, query, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("max lesson number: %w", err)
	}
	return number, nil
}

// Delete removes the lesson and cascades its grades.
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
