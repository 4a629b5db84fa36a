package public

import (
	"errors"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var cartMutationErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, key: "error.product_not_available"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.quantity_invalid"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.quantity_invalid"},
	{target: service.ErrAddressInvalid, code: response.CodeBadRequest, key: "error.address_invalid"},
	{target: service.ErrPaymentMethodInvalid, code: response.CodeBadRequest, key: "error.payment_method_invalid"},
	{target: service.ErrQueueUnavailable, code: response.CodeInternal, key: "error.queue_unavailable"},
}

func respondOrderCreateError(c *gin.Context, err error) {
	if respondOrderItemIssues(c, err) {
		return
	}
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "error.order_create_failed")
}

var reviewWriteErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrRatingInvalid, code: response.CodeBadRequest, key: "error.rating_invalid"},
	{target: service.ErrReviewExists, code: response.CodeConflict, key: "error.review_exists"},
	{target: service.ErrReviewNotOwned, code: response.CodeForbidden, key: "error.review_not_owned"},
	{target: service.ErrReviewNotFound, code: response.CodeNotFound, key: "error.review_not_found"},
}
