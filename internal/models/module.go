package models

import "time"

// Module is a grading period within a group. At most one module per
// group is active at any time; finishing a module is terminal and
// freezes it except for reads.
type Module struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	IsFinished bool      `db:"is_finished" json:"is_finished"`
	GroupID    int64     `db:"group_id" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
