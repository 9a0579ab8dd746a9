package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/grouptable/grouptable-api/internal/models"
)

func TestLessonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	rows := sqlmock.NewRows([]string{"id", "is_active", "created_at"}).AddRow(int64(30), true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO lessons")).
		WithArgs("Fractions", 3, int64(20)).
		WillReturnRows(rows)

	lesson := &models.Lesson{Name: "Fractions", LessonNumber: 3, ModuleID: 20}
	require.NoError(t, repo.Create(context.Background(), lesson))
	require.EqualValues(t, 30, lesson.ID)
	require.True(t, lesson.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateSecondOpenSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO lessons")).
		WithArgs("Fractions", 3, int64(20)).
		WillReturnError(&pq.Error{Code: "23505"})

	lesson := &models.Lesson{Name: "Fractions", LessonNumber: 3, ModuleID: 20}
	err := repo.Create(context.Background(), lesson)
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryMaxNumberEmptyModule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lesson_number FROM lessons")).
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"lesson_number"}))

	number, err := repo.MaxNumberInModule(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, 0, number)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryFindOwnedJoinsChain(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLessonRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "lesson_number", "is_active", "module_id", "created_at"}).
		AddRow(int64(30), "Fractions", 3, true, int64(20), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN groups g ON m.group_id = g.id")).
		WithArgs(int64(30), int64(1)).
		WillReturnRows(rows)

	lesson, err := repo.FindOwned(context.Background(), 30, 1)
	require.NoError(t, err)
	require.Equal(t, 3, lesson.LessonNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
