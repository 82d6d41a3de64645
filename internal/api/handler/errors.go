package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/internal/api/middleware"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/razorpay"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

// writeError 把 service 层错误映射为统一响应
func writeError(c *gin.Context, err error) {
	var apiErr *razorpay.APIError

	switch {
	case errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidEventKind),
		errors.Is(err, service.ErrUnsupportedImage),
		errors.Is(err, service.ErrImageTooLarge),
		errors.Is(err, service.ErrInvalidResetToken),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOfferUnavailable),
		errors.Is(err, service.ErrCannotDisableSelf),
		errors.Is(err, razorpay.ErrInvalidSignature):
		response.ParamError(c, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials):
		response.AuthError(c, err.Error())

	case errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrNotMerchant),
		errors.Is(err, service.ErrNotCustomer),
		errors.Is(err, service.ErrNotRedemptionHandler):
		response.PermissionError(c, err.Error())

	case errors.Is(err, service.ErrOfferNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRedemptionNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())

	case errors.Is(err, service.ErrQuotaExceeded):
		response.QuotaError(c, err.Error())

	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrRedemptionPending),
		errors.Is(err, service.ErrRedemptionDecided):
		response.DuplicateError(c, err.Error())

	case errors.Is(err, service.ErrPaymentNotConfigured),
		errors.Is(err, service.ErrEmailNotConfigured),
		errors.Is(err, service.ErrStorageNotAvailable),
		errors.Is(err, service.ErrResetNotAvailable):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("missing configuration")
		response.ConfigError(c, err.Error())

	case errors.As(err, &apiErr):
		log.Error().Err(err).Str("op", apiErr.Op).Msg("payment gateway error")
		response.UpstreamError(c, apiErr.Error())

	case errors.Is(err, service.ErrNotificationsFailed):
		response.UpstreamError(c, err.Error())

	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.ServerError(c, "")
	}
}

// currentActor 取认证中间件放入的身份，缺失时直接写 401
func currentActor(c *gin.Context) (*model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.AuthError(c, "")
		return nil, false
	}
	return actor, true
}

// pathID 解析路径中的数字 ID，非法时写 400
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
