package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/pkg/razorpay"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

const maxWebhookBody = 1 << 20

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Plans 套餐目录
// GET /api/v1/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	response.Success(c, plan.All())
}

// Create 创建付费套餐订阅，返回前端 checkout 所需信息
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), actor, req.PlanName)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, resp)
}

// Current 当前用户的订阅
// GET /api/v1/subscriptions/current
func (h *SubscriptionHandler) Current(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Current(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, sub)
}

// Webhook 支付网关回调，签名校验通过后同步订阅状态
// POST /api/v1/webhooks/razorpay
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.ParamError(c, "failed to read body")
		return
	}

	err = h.subscriptionService.HandleWebhook(c.Request.Context(), body, c.GetHeader(razorpay.SignatureHeader))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"received": true})
}
