package admin

import (
	"strconv"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 管理端数据总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	lowStockThreshold, _ := strconv.Atoi(c.DefaultQuery("low_stock_threshold", "0"))

	overview, err := h.DashboardService.Overview(lowStockThreshold)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}

	response.Success(c, overview)
}
