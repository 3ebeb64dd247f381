package handler

import (
	"strconv"

	"usedcar-market/internal/adapter/http/middleware"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentAccount returns the authenticated account or writes AUTH_003.
func currentAccount(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// uuidParam parses a path parameter or writes VAL_001.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and page_size with the same bounds the services apply.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 20
	case pageSize > 100:
		pageSize = 100
	}
	return page, pageSize
}
