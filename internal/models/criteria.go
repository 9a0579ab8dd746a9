package models

import (
	"strings"
	"time"
)

// MaxCriteriaPerModule caps grading criteria within a module.
const MaxCriteriaPerModule = 6

// GradingMethod is a closed enum; external representations parse
// through ParseGradingMethod and unrecognized values are rejected
// rather than defaulted.
type GradingMethod string

const (
	GradingOneByOne GradingMethod = "one_by_one"
	GradingBulk     GradingMethod = "bulk"
)

// ParseGradingMethod parses a case-normalized external value.
func ParseGradingMethod(raw string) (GradingMethod, bool) {
	switch GradingMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case GradingOneByOne:
		return GradingOneByOne, true
	case GradingBulk:
		return GradingBulk, true
	default:
		return "", false
	}
}

// Criteria defines a point scale within a module. Criteria may only be
// added or edited while the owning module is active.
type Criteria struct {
	ID            int64         `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	MaxPoints     int           `db:"max_points" json:"max_points"`
	GradingMethod GradingMethod `db:"grading_method" json:"grading_method"`
	ModuleID      int64         `db:"module_id" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
