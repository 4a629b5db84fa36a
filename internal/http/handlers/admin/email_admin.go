package admin

import (
	"errors"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// SendTestEmailRequest 测试邮件请求
type SendTestEmailRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendTestEmail 按当前 SMTP 配置发送测试邮件
func (h *Handler) SendTestEmail(c *gin.Context) {
	var req SendTestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.EmailService.SendCustomEmail(req.To, req.Subject, req.Body); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailServiceDisabled):
			respondError(c, response.CodeBadRequest, "error.email_service_disabled", nil)
		case errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, response.CodeBadRequest, "error.email_service_not_configured", nil)
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "error.invalid_email", nil)
		case errors.Is(err, service.ErrEmailRecipientRejected):
			respondError(c, response.CodeBadRequest, "error.email_recipient_rejected", nil)
		default:
			respondError(c, response.CodeInternal, "error.email_send_failed", err)
		}
		return
	}

	response.Success(c, gin.H{"sent": true})
}
