package models

import "time"

// MaxActiveGroupsPerTeacher caps simultaneously active groups.
// Finished groups do not count against the cap.
const MaxActiveGroupsPerTeacher = 6

// Group is a teacher's class of students. The code is assigned once at
// creation and is the only unauthenticated lookup key into the system.
type Group struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	TeacherID int64     `db:"teacher_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
