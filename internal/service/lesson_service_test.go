package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type mockLessonRepo struct {
	lessons map[int64]*models.Lesson
	owner   int64 // teacher owning every lesson's chain
	nextID  int64
}

func newMockLessonRepo() *mockLessonRepo {
	return &mockLessonRepo{lessons: make(map[int64]*models.Lesson), owner: 1}
}

func (m *mockLessonRepo) ListByModule(ctx context.Context, moduleID int64) ([]models.Lesson, error) {
	var list []models.Lesson
	for _, l := range m.lessons {
		if l.ModuleID == moduleID {
			list = append(list, *l)
		}
	}
	return list, nil
}

func (m *mockLessonRepo) CountByModule(ctx context.Context, moduleID int64) (int, error) {
	count := 0
	for _, l := range m.lessons {
		if l.ModuleID == moduleID {
			count++
		}
	}
	return count, nil
}

func (m *mockLessonRepo) HasActiveInModule(ctx context.Context, moduleID int64) (bool, error) {
	for _, l := range m.lessons {
		if l.ModuleID == moduleID && l.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	m.nextID++
	lesson.ID = m.nextID
	lesson.IsActive = true
	stored := *lesson
	m.lessons[lesson.ID] = &stored
	return nil
}

func (m *mockLessonRepo) FindOwned(ctx context.Context, id, teacherID int64) (*models.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok || teacherID != m.owner {
		return nil, sql.ErrNoRows
	}
	copied := *l
	return &copied, nil
}

func (m *mockLessonRepo) Finish(ctx context.Context, id int64) error {
	if l, ok := m.lessons[id]; ok {
		l.IsActive = false
	}
	return nil
}

func (m *mockLessonRepo) MaxNumberInModule(ctx context.Context, moduleID int64) (int, error) {
	max := 0
	for _, l := range m.lessons {
		if l.ModuleID == moduleID && l.LessonNumber > max {
			max = l.LessonNumber
		}
	}
	return max, nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id int64) error {
	delete(m.lessons, id)
	return nil
}

type mockModuleOwnership struct {
	modules map[int64]*models.Module
	owner   int64
}

func (m *mockModuleOwnership) FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error) {
	mod, ok := m.modules[id]
	if !ok || teacherID != m.owner {
		return nil, sql.ErrNoRows
	}
	copied := *mod
	return &copied, nil
}

func lessonServiceFixture() (*LessonService, *mockLessonRepo, *mockModuleOwnership) {
	lessons := newMockLessonRepo()
	modules := &mockModuleOwnership{
		modules: map[int64]*models.Module{20: {ID: 20, GroupID: 10, IsActive: true}},
		owner:   1,
	}
	return NewLessonService(lessons, modules, validator.New(), zap.NewNop()), lessons, modules
}

func TestLessonServiceCreateAssignsSequentialNumbers(t *testing.T) {
	svc, _, _ := lessonServiceFixture()

	first, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.LessonNumber)

	require.NoError(t, svc.Finish(context.Background(), 1, first.ID))

	second, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.LessonNumber)
}

func TestLessonServiceCreateSingleOpen(t *testing.T) {
	svc, _, _ := lessonServiceFixture()

	_, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Another"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreateInactiveModuleRejected(t *testing.T) {
	svc, _, modules := lessonServiceFixture()
	modules.modules[20].IsActive = false

	_, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreateCap(t *testing.T) {
	svc, lessons, _ := lessonServiceFixture()
	for i := 1; i <= models.MaxLessonsPerModule; i++ {
		lessons.nextID++
		lessons.lessons[lessons.nextID] = &models.Lesson{ID: lessons.nextID, ModuleID: 20, LessonNumber: i}
	}

	_, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Overflow"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceDeleteOnlyTail(t *testing.T) {
	svc, lessons, _ := lessonServiceFixture()

	first, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	require.NoError(t, svc.Finish(context.Background(), 1, first.ID))
	second, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 1, first.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), 1, second.ID))
	_, stillThere := lessons.lessons[first.ID]
	assert.True(t, stillThere)
}

func TestLessonServiceNumberReusedAfterTailDelete(t *testing.T) {
	svc, _, _ := lessonServiceFixture()

	first, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	require.NoError(t, svc.Finish(context.Background(), 1, first.ID))
	second, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), 1, second.ID))

	third, err := svc.Create(context.Background(), 1, 20, CreateLessonRequest{Name: "Lesson"})
	require.NoError(t, err)
	assert.Equal(t, 2, third.LessonNumber)
}

func TestLessonServiceForeignModuleHidden(t *testing.T) {
	svc, _, _ := lessonServiceFixture()

	_, err := svc.List(context.Background(), 2, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
