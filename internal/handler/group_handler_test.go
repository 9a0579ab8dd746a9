package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/middleware"
	"github.com/grouptable/grouptable-api/internal/models"
	"github.com/grouptable/grouptable-api/internal/service"
)

func groupHandlerFixture() *GroupHandler {
	repo := &groupRepoStub{groups: map[string]*models.Group{}}
	groups := service.NewGroupService(repo, nil, zap.NewNop())
	return NewGroupHandler(groups, nil)
}

func TestGroupHandlerListWithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := groupHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/teacher/groups", nil)

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGroupHandlerGetRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := groupHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/teacher/groups/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextPrincipalKey, models.Principal{ID: 1, Role: models.RoleTeacher})

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := groupHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/teacher/groups", bytes.NewReader([]byte(`not json`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextPrincipalKey, models.Principal{ID: 1, Role: models.RoleTeacher})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := groupHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.CreateGroupRequest{Name: "7B"})
	c.Request, _ = http.NewRequest(http.MethodPost, "/teacher/groups", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextPrincipalKey, models.Principal{ID: 1, Role: models.RoleTeacher})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Group `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "7B", envelope.Data.Name)
	assert.NotEmpty(t, envelope.Data.Code)
}
