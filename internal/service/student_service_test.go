package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[int64]*models.Student
	owner    int64
	nextID   int64
}

func (m *mockStudentRepo) ListByGroup(ctx context.Context, groupID int64) ([]models.Student, error) {
	out := []models.Student{}
	for _, st := range m.students {
		if st.GroupID == groupID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) CountByGroup(ctx context.Context, groupID int64) (int, error) {
	count := 0
	for _, st := range m.students {
		if st.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.nextID++
	student.ID = m.nextID
	stored := *student
	m.students[student.ID] = &stored
	return nil
}

func (m *mockStudentRepo) FindOwned(ctx context.Context, id, teacherID int64) (*models.Student, error) {
	st, ok := m.students[id]
	if !ok || teacherID != m.owner {
		return nil, sql.ErrNoRows
	}
	copied := *st
	return &copied, nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id int64) error {
	delete(m.students, id)
	return nil
}

func studentServiceFixture() (*StudentService, *mockStudentRepo) {
	students := &mockStudentRepo{students: make(map[int64]*models.Student), owner: 1}
	groups := &mockGroupOwnership{owners: map[int64]int64{10: 1}}
	return NewStudentService(students, groups, validator.New(), zap.NewNop()), students
}

func TestStudentCreateAndList(t *testing.T) {
	svc, _ := studentServiceFixture()

	student, err := svc.Create(context.Background(), 1, 10, CreateStudentRequest{FullName: "Ada Lovelace"})
	require.NoError(t, err)
	assert.EqualValues(t, 10, student.GroupID)

	roster, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestStudentCreateGroupCap(t *testing.T) {
	svc, students := studentServiceFixture()
	for i := 0; i < models.MaxStudentsPerGroup; i++ {
		_, err := svc.Create(context.Background(), 1, 10, CreateStudentRequest{FullName: fmt.Sprintf("Student %d", i)})
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), 1, 10, CreateStudentRequest{FullName: "One Too Many"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, students.students, models.MaxStudentsPerGroup)
}

func TestStudentForeignGroupHidden(t *testing.T) {
	svc, _ := studentServiceFixture()

	_, err := svc.Create(context.Background(), 2, 10, CreateStudentRequest{FullName: "Ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), 2, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentDelete(t *testing.T) {
	svc, students := studentServiceFixture()

	created, err := svc.Create(context.Background(), 1, 10, CreateStudentRequest{FullName: "Ada Lovelace"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, created.ID))
	assert.Empty(t, students.students)
}

func TestStudentDeleteForeignHidden(t *testing.T) {
	svc, _ := studentServiceFixture()

	created, err := svc.Create(context.Background(), 1, 10, CreateStudentRequest{FullName: "Ada Lovelace"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 2, created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
