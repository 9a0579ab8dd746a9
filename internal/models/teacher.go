package models

import "time"

// Teacher is owned by exactly one admin and cascade-deleted with it.
type Teacher struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	AdminID      int64     `db:"admin_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TeacherStats aggregates counts across a teacher's ownership chain.
type TeacherStats struct {
	Groups   int `db:"groups" json:"groups"`
	Students int `db:"students" json:"students"`
	Modules  int `db:"modules" json:"modules"`
	Lessons  int `db:"lessons" json:"lessons"`
	Grades   int `db:"grades" json:"total_grades"`
}
