package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grouptable/grouptable-api/internal/middleware"
	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/response"
)

// principalFromContext pulls the authenticated principal or writes an
// Unauthorized response and reports false.
func principalFromContext(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Principal{}, false
	}
	return principal, true
}

// pathID parses a positive integer path parameter or writes a
// validation error and reports false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter"))
		return 0, false
	}
	return id, true
}
