package models

import "time"

// MaxStudentsPerGroup caps group size.
const MaxStudentsPerGroup = 30

// Student belongs to exactly one group.
type Student struct {
	ID       int64     `db:"id" json:"id"`
	FullName string    `db:"full_name" json:"full_name"`
	GroupID  int64     `db:"group_id" json:"-"`
	AddedAt  time.Time `db:"added_at" json:"added_at"`
}
