package models

import "time"

// Grade records points earned by a student against one criterion in
// one lesson. At most one row exists per (student, criteria, lesson)
// triple; re-submission overwrites points_earned in place.
type Grade struct {
	ID           int64     `db:"id" json:"id"`
	PointsEarned int       `db:"points_earned" json:"points_earned"`
	StudentID    int64     `db:"student_id" json:"student_id"`
	CriteriaID   int64     `db:"criteria_id" json:"criteria_id"`
	LessonID     int64     `db:"lesson_id" json:"lesson_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
