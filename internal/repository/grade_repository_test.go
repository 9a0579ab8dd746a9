package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/grouptable/grouptable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grades")).
		WithArgs(8, int64(50), int64(40), int64(30)).
		WillReturnRows(rows)

	grade := &models.Grade{PointsEarned: 8, StudentID: 50, CriteriaID: 40, LessonID: 30}
	require.NoError(t, repo.Upsert(context.Background(), grade))
	require.EqualValues(t, 42, grade.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByLesson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "points_earned", "student_id", "criteria_id", "lesson_id", "created_at", "updated_at"}).
		AddRow(int64(1), 8, int64(50), int64(40), int64(30), now, now).
		AddRow(int64(2), 5, int64(51), int64(40), int64(30), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, points_earned, student_id, criteria_id, lesson_id")).
		WithArgs(int64(30)).
		WillReturnRows(rows)

	grades, err := repo.ListByLesson(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.EqualValues(t, 50, grades[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryStudentTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	rows := sqlmock.NewRows([]string{"student_id", "full_name", "total_points"}).
		AddRow(int64(50), "Ada", 30).
		AddRow(int64(51), "Grace", 30).
		AddRow(int64(52), "Edsger", 0)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(g.points_earned), 0)")).
		WithArgs(int64(20)).
		WillReturnRows(rows)

	totals, err := repo.StudentTotals(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	// Ungraded students still show up, with zero points.
	require.Equal(t, 0, totals[2].TotalPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}
