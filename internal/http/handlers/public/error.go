package public

import (
	"fmt"

	handlershared "github.com/devshad-01/alx-project-nexus/internal/http/handlers/shared"
	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondErrorWithData(c *gin.Context, code int, msg string, data interface{}, err error) {
	handlershared.RespondErrorWithData(c, code, msg, data, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// respondPasswordPolicyError 处理带参数的密码策略错误，返回是否已响应。
func respondPasswordPolicyError(c *gin.Context, err error) bool {
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

// respondOrderItemIssues 将逐条下单校验问题附加到错误响应中。
func respondOrderItemIssues(c *gin.Context, err error) bool {
	issues := service.OrderItemIssues(err)
	if len(issues) == 0 {
		return false
	}
	respondErrorWithData(c, response.CodeBadRequest, "error.order_item_invalid", gin.H{"items": issues}, nil)
	return true
}
