package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	"github.com/grouptable/grouptable-api/internal/service"
)

type groupRepoStub struct {
	groups map[string]*models.Group
}

func (s *groupRepoStub) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Group, error) {
	return nil, nil
}

func (s *groupRepoStub) FindOwned(ctx context.Context, id, teacherID int64) (*models.Group, error) {
	return nil, sql.ErrNoRows
}

func (s *groupRepoStub) FindByCode(ctx context.Context, code string) (*models.Group, error) {
	if g, ok := s.groups[code]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *groupRepoStub) CountActiveByTeacher(ctx context.Context, teacherID int64) (int, error) {
	return 0, nil
}

func (s *groupRepoStub) CodeSequence(ctx context.Context) (int, error) { return 0, nil }

func (s *groupRepoStub) CreateWithCode(ctx context.Context, group *models.Group) error { return nil }

func (s *groupRepoStub) Finish(ctx context.Context, id int64) error { return nil }

func (s *groupRepoStub) Delete(ctx context.Context, id int64) error { return nil }

type totalsStub struct {
	totals []models.StudentTotal
}

func (s *totalsStub) StudentTotals(ctx context.Context, moduleID int64) ([]models.StudentTotal, error) {
	return s.totals, nil
}

type moduleRepoStub struct {
	modules map[int64]*models.Module
	latest  map[int64]int64
}

func (s *moduleRepoStub) ListByGroup(ctx context.Context, groupID int64) ([]models.Module, error) {
	var out []models.Module
	for _, m := range s.modules {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *moduleRepoStub) FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error) {
	return nil, sql.ErrNoRows
}

func (s *moduleRepoStub) FindInGroup(ctx context.Context, id, groupID int64) (*models.Module, error) {
	if m, ok := s.modules[id]; ok && m.GroupID == groupID {
		copied := *m
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *moduleRepoStub) HasActiveInGroup(ctx context.Context, groupID int64) (bool, error) {
	return false, nil
}

func (s *moduleRepoStub) Create(ctx context.Context, module *models.Module) error { return nil }

func (s *moduleRepoStub) Finish(ctx context.Context, id int64) error { return nil }

func (s *moduleRepoStub) LatestIDInGroup(ctx context.Context, groupID int64) (int64, error) {
	return s.latest[groupID], nil
}

func (s *moduleRepoStub) Delete(ctx context.Context, id int64) error { return nil }

func publicHandlerFixture() *PublicHandler {
	repo := &groupRepoStub{groups: map[string]*models.Group{
		"A1": {ID: 10, Name: "7B", Code: "A1", IsActive: true, TeacherID: 1},
	}}
	moduleStub := &moduleRepoStub{
		modules: map[int64]*models.Module{20: {ID: 20, Name: "Module 1", GroupID: 10, IsActive: true}},
		latest:  map[int64]int64{10: 20},
	}
	groups := service.NewGroupService(repo, nil, zap.NewNop())
	modules := service.NewModuleService(moduleStub, repo, nil, zap.NewNop())
	leaderboard := service.NewLeaderboardService(
		&totalsStub{totals: []models.StudentTotal{
			{StudentID: 50, FullName: "Ada", TotalPoints: 30},
			{StudentID: 51, FullName: "Grace", TotalPoints: 30},
			{StudentID: 52, FullName: "Edsger", TotalPoints: 12},
		}},
		repo,
		moduleStub,
		nil, time.Minute, nil, zap.NewNop(),
	)
	return NewPublicHandler(groups, modules, leaderboard, true)
}

func TestPublicHandlerGroupByCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/a1", nil)
	c.Params = gin.Params{{Key: "code", Value: "a1"}}

	handler.Group(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "7B", envelope.Data["name"])
	assert.Equal(t, "A1", envelope.Data["code"])
	// Owner identifiers never leak through the public surface.
	assert.NotContains(t, envelope.Data, "teacher_id")
	assert.NotContains(t, envelope.Data, "id")
}

func TestPublicHandlerGroupUnknownCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/ZZ99", nil)
	c.Params = gin.Params{{Key: "code", Value: "ZZ99"}}

	handler.Group(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicHandlerModules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/A1/modules", nil)
	c.Params = gin.Params{{Key: "code", Value: "A1"}}

	handler.Modules(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.Module `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Module 1", envelope.Data[0].Name)
}

func TestPublicHandlerModuleLeaderboard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/A1/modules/20/leaderboard", nil)
	c.Params = gin.Params{{Key: "code", Value: "A1"}, {Key: "id", Value: "20"}}

	handler.ModuleLeaderboard(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.LeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 3)
	assert.Equal(t, 1, envelope.Data[0].Position)
}

func TestPublicHandlerModuleLeaderboardForeignModule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/A1/modules/99/leaderboard", nil)
	c.Params = gin.Params{{Key: "code", Value: "A1"}, {Key: "id", Value: "99"}}

	handler.ModuleLeaderboard(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicHandlerExportLeaderboardCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/A1/leaderboard/export", nil)
	c.Params = gin.Params{{Key: "code", Value: "A1"}}

	handler.ExportLeaderboard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leaderboard-20.csv")
	assert.Contains(t, w.Body.String(), "Ada")
}

func TestPublicHandlerLeaderboard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := publicHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/public/groups/A1/leaderboard", nil)
	c.Params = gin.Params{{Key: "code", Value: "A1"}}

	handler.Leaderboard(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.LeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 3)
	assert.Equal(t, 1, envelope.Data[0].Position)
	assert.Equal(t, 1, envelope.Data[1].Position)
	assert.Equal(t, 3, envelope.Data[2].Position)
}
