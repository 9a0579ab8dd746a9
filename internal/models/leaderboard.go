package models

// StudentTotal is the raw aggregation row: one per student in the
// module's group, zero-grade students included at 0.
type StudentTotal struct {
	StudentID   int64  `db:"student_id"`
	FullName    string `db:"full_name"`
	TotalPoints int    `db:"total_points"`
}

// LeaderboardEntry is one ranked row of a module leaderboard.
// Positions use standard competition ranking: equal totals share a
// position, and the next distinct total takes its 1-based index in
// the sorted order (1,2,2,4).
type LeaderboardEntry struct {
	StudentID   int64  `json:"student_id"`
	Name        string `json:"name"`
	TotalPoints int    `json:"total_points"`
	Position    int    `json:"position"`
}
