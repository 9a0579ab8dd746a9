package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// GradeRepository handles grade persistence and the ranking query.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts the grade or overwrites points_earned in place. The
// unique constraint on the (student, criteria, lesson) triple makes
// the check-then-act race-free: two concurrent identical submissions
// can never produce two rows.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	const query = `INSERT INTO grades (points_earned, student_id, criteria_id, lesson_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (student_id, criteria_id, lesson_id)
        DO UPDATE SET points_earned = EXCLUDED.points_earned, updated_at = NOW()
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, grade.PointsEarned, grade.StudentID, grade.CriteriaID, grade.LessonID).
		Scan(&grade.ID, &grade.CreatedAt, &grade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListByLesson returns all grades recorded for a lesson.
func (r *GradeRepository) ListByLesson(ctx context.Context, lessonID int64) ([]models.Grade, error) {
	const query = `SELECT id, points_earned, student_id, criteria_id, lesson_id, created_at, updated_at
        FROM grades WHERE lesson_id = $1 ORDER BY student_id, criteria_id`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, lessonID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// StudentTotals returns one row per student in the module's group with
// the summed points over the module's lessons. Students without grades
// appear with total 0; a missing module yields no rows. The whole
// aggregation runs as a single consistent query.
func (r *GradeRepository) StudentTotals(ctx context.Context, moduleID int64) ([]models.StudentTotal, error) {
	const query = `SELECT s.id AS student_id, s.full_name,
            COALESCE(SUM(g.points_earned), 0) AS total_points
        FROM students s
        JOIN modules m ON m.id = $1 AND m.group_id = s.group_id
        LEFT JOIN grades g ON g.student_id = s.id
            AND g.lesson_id IN (SELECT id FROM lessons WHERE module_id = m.id)
        GROUP BY s.id, s.full_name
        ORDER BY total_points DESC, s.id`
	var totals []models.StudentTotal
	if err := r.db.SelectContext(ctx, &totals, query, moduleID); err != nil {
		return nil, fmt.Errorf("student totals: %w", err)
	}
	return totals, nil
}
