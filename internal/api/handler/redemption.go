package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type RedemptionHandler struct {
	redemptionService *service.RedemptionService
}

func NewRedemptionHandler(redemptionService *service.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
	}
}

// Redeem 顾客申请核销
// POST /api/v1/offers/:id/redeem
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	info, err := h.redemptionService.Request(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "redemption requested", info)
}

// Approve 商家批准核销
// POST /api/v1/redemptions/:id/approve
func (h *RedemptionHandler) Approve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	info, err := h.redemptionService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// Reject 商家拒绝核销
// POST /api/v1/redemptions/:id/reject
func (h *RedemptionHandler) Reject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	info, err := h.redemptionService.Reject(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// List 当前用户的核销记录
// GET /api/v1/redemptions
func (h *RedemptionHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.redemptionService.List(actor, q.Page, q.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, items)
}
