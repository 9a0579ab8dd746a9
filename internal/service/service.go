// Package service implements the business rules of the GroupTable API:
// authentication, the entity lifecycle with its caps and single-active
// invariants, grade upserts and the leaderboard ranking.
package service

import "strings"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
