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
	"github.com/grouptable/grouptable-api/internal/repository"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/groupcode"
)

type mockGroupRepo struct {
	groups      map[int64]*models.Group
	byCode      map[string]*models.Group
	activeCount int
	sequence    int
	nextID      int64
	failCodes   map[string]bool
	created     []string
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{
		groups:    make(map[int64]*models.Group),
		byCode:    make(map[string]*models.Group),
		failCodes: make(map[string]bool),
	}
}

func (m *mockGroupRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Group, error) {
	var list []models.Group
	for _, g := range m.groups {
		if g.TeacherID == teacherID {
			list = append(list, *g)
		}
	}
	return list, nil
}

func (m *mockGroupRepo) FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error) {
	if g, ok := m.groups[id]; ok && g.TeacherID == teacherID {
		copied := *g
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	if g, ok := m.byCode[code]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) CountActiveByTeacher(ctx context.Context, teacherID int64) (int, error) {
	return m.activeCount, nil
}

func (m *mockGroupRepo) CodeSequence(ctx context.Context) (int, error) {
	return m.sequence, nil
}

func (m *mockGroupRepo) CreateWithCode(ctx context.Context, group *models.Group) error {
	m.created = append(m.created, group.Code)
	if m.failCodes[group.Code] {
		return repository.ErrDuplicate
	}
	m.nextID++
	group.ID = m.nextID
	group.IsActive = true
	stored := *group
	m.groups[group.ID] = &stored
	m.byCode[group.Code] = &stored
	return nil
}

func (m *mockGroupRepo) Finish(ctx context.Context, id int64) error {
	if g, ok := m.groups[id]; ok {
		g.IsActive = false
	}
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id int64) error {
	delete(m.groups, id)
	return nil
}

func TestGroupServiceCreateAssignsCode(t *testing.T) {
	repo := newMockGroupRepo()
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	group, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Math 5A"})
	require.NoError(t, err)
	assert.Equal(t, "A1", group.Code)
	assert.True(t, group.IsActive)
	assert.EqualValues(t, 1, group.TeacherID)
}

func TestGroupServiceCreateRetriesOnCollision(t *testing.T) {
	repo := newMockGroupRepo()
	repo.failCodes["A1"] = true
	repo.failCodes["B2"] = true
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	group, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Math 5A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "C3"}, repo.created)
	assert.Equal(t, "C3", group.Code)
}

func TestGroupServiceCreateActiveCap(t *testing.T) {
	repo := newMockGroupRepo()
	repo.activeCount = models.MaxActiveGroupsPerTeacher
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Overflow"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGroupServiceCreateExhaustsCandidates(t *testing.T) {
	repo := newMockGroupRepo()
	for i := 1; i <= 20; i++ {
		repo.failCodes[groupcode.Next(i)] = true
	}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Unlucky"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestGroupServiceFindByCodeNormalizes(t *testing.T) {
	repo := newMockGroupRepo()
	svc := NewGroupService(repo, validator.New(), zap.NewNop())
	created, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Math 5A"})
	require.NoError(t, err)

	found, err := svc.FindByCode(context.Background(), "  a1 ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestGroupServiceFindOwnedHidesForeignGroups(t *testing.T) {
	repo := newMockGroupRepo()
	svc := NewGroupService(repo, validator.New(), zap.NewNop())
	created, err := svc.Create(context.Background(), 1, CreateGroupRequest{Name: "Math 5A"})
	require.NoError(t, err)

	_, err = svc.FindOwned(context.Background(), 2, created.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
