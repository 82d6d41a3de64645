package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type QuotaHandler struct {
	quotaService *service.QuotaService
}

func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{
		quotaService: quotaService,
	}
}

// GetQuota 当前商家本月的发布配额，计数失败时也返回 200，错误放在 data.error 里
// GET /api/v1/merchant/quota
func (h *QuotaHandler) GetQuota(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	response.Success(c, h.quotaService.Evaluate(actor))
}
