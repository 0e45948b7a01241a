package api

import (
	"strconv"

	"github.com/fsdevblog/groph-credits/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

const defaultListLimit uint = 50

// getAccountIDFromContext берет из контекста gin ID текущего аккаунта. ID устанавливается в
// middlewares.AuthRequired. В случае, если значения в контексте нет или ошибка утверждения
// типа - вернется 0.
func getAccountIDFromContext(c *gin.Context) int64 {
	accountIDVal, exist := c.Get(middlewares.CurrentAccountIDKey)
	if !exist {
		return 0
	}
	accountID, ok := accountIDVal.(int64)
	if !ok {
		return 0
	}
	return accountID
}

// parseLimitQuery разбирает query-параметр limit, возвращая defaultListLimit
// при отсутствии или мусорном значении.
func parseLimitQuery(c *gin.Context) uint {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || limit == 0 {
		return defaultListLimit
	}
	return uint(limit)
}
