package admin

import (
	"fmt"
	"strings"
	"time"

	handlershared "github.com/devshad-01/alx-project-nexus/internal/http/handlers/shared"
	"github.com/devshad-01/alx-project-nexus/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// respondAdminPasswordPolicyError 处理带参数的密码策略错误，返回是否已响应。
func respondAdminPasswordPolicyError(c *gin.Context, err error) bool {
	perr, ok := err.(interface {
		Key() string
		Args() []interface{}
	})
	if !ok {
		return false
	}
	msg := perr.Key()
	if args := perr.Args(); len(args) > 0 {
		msg = fmt.Sprintf("%s:%v", msg, args[0])
	}
	respondError(c, response.CodeBadRequest, msg, nil)
	return true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid time value: %s", raw)
}
