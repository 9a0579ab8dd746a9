package models

import "time"

// MaxLessonsPerModule caps lessons within a module.
const MaxLessonsPerModule = 15

// Lesson is an open or closed grading session within a module.
// Numbers are assigned sequentially at creation and never reused;
// only the highest-numbered lesson may be deleted, which keeps the
// numbering contiguous.
type Lesson struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	LessonNumber int       `db:"lesson_number" json:"lesson_number"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	ModuleID     int64     `db:"module_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
