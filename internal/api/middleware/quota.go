package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
)

// QuotaEvaluator 由 service.QuotaService 实现
type QuotaEvaluator interface {
	Evaluate(actor *model.Actor) *dto.QuotaInfo
}

// QuotaCheck 发布优惠前的配额预检，提前拒绝明显超额的请求。
// 计数失败时放行，由创建事务做最终判断。
func QuotaCheck(quota QuotaEvaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		info := quota.Evaluate(actor)
		if info.Error != "" {
			log.Warn().Int64("user_id", actor.ID).Str("error", info.Error).Msg("quota pre-check skipped")
			c.Next()
			return
		}

		if !info.CanCreate {
			response.QuotaError(c, "monthly offer limit reached for your plan")
			c.Abort()
			return
		}

		c.Next()
	}
}
