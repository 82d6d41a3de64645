package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// RedemptionEmail 给顾客和商家各发一封核销通知。
// 一方失败仍返回 200，失败原因写在对应字段；两封都失败返回 500。
// POST /api/v1/notifications/redemption-email
func (h *NotificationHandler) RedemptionEmail(c *gin.Context) {
	var req dto.RedemptionEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	report, err := h.notificationService.DispatchRedemption(c.Request.Context(), &service.RedemptionEvent{
		Kind:          service.EventKind(req.Type),
		RedemptionID:  req.RedemptionID,
		CustomerEmail: req.CustomerEmail,
		MerchantEmail: req.MerchantEmail,
		CustomerName:  req.CustomerName,
		MerchantName:  req.MerchantName,
		OfferTitle:    req.OfferTitle,
		StoreName:     req.StoreName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if report.AllFailed() {
		response.UpstreamError(c, service.ErrNotificationsFailed.Error()+": "+report.Err().Error())
		return
	}

	resp := &dto.DeliveryResponse{
		CustomerEmailID: report.CustomerID,
		MerchantEmailID: report.MerchantID,
	}
	if report.CustomerError != nil {
		resp.CustomerError = report.CustomerError.Error()
	}
	if report.MerchantError != nil {
		resp.MerchantError = report.MerchantError.Error()
	}

	response.SuccessWithMessage(c, "redemption emails sent", resp)
}
