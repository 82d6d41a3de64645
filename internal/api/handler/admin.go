package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type AdminHandler struct {
	offerService *service.OfferService
	userService  *service.UserService
}

func NewAdminHandler(offerService *service.OfferService, userService *service.UserService) *AdminHandler {
	return &AdminHandler{
		offerService: offerService,
		userService:  userService,
	}
}

// ListOffers 审核队列
// GET /api/v1/admin/offers?status=
func (h *AdminHandler) ListOffers(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	offers, total, err := h.offerService.ListForModeration(q.Status, q.Page, q.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, offers)
}

// UpdateOfferStatus 审核优惠
// PUT /api/v1/admin/offers/:id/status
func (h *AdminHandler) UpdateOfferStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	offer, err := h.offerService.Moderate(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, offer)
}

// ListUsers 用户列表
// GET /api/v1/admin/users?role=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	users, total, err := h.userService.ListUsers(q.Page, q.PageSize, q.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, users)
}

// SetUserActive 启用或停用账号
// PUT /api/v1/admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.userService.SetActive(actor, id, *req.IsActive); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"id": id, "is_active": *req.IsActive})
}
