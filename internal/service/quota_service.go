package service

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/repository"
)

type QuotaService struct {
	offerRepo *repository.OfferRepository
	loc       *time.Location
	now       func() time.Time
}

func NewQuotaService(offerRepo *repository.OfferRepository, cfg *config.Config) *QuotaService {
	return &QuotaService{
		offerRepo: offerRepo,
		loc:       cfg.Location(),
		now:       time.Now,
	}
}

// MonthRange 返回 now 所在自然月的首尾时刻（闭区间），按 loc 时区划分
func MonthRange(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// CurrentMonth 当前计费月
func (s *QuotaService) CurrentMonth() (time.Time, time.Time) {
	return MonthRange(s.now(), s.loc)
}

// Limit 套餐的每月上限，未知套餐按入门套餐
func (s *QuotaService) Limit(actor *model.Actor) int {
	if actor == nil {
		return plan.For(plan.Entry).MaxOffers
	}
	return plan.For(actor.Tier).MaxOffers
}

// Evaluate 计算本月配额。结果仅供展示，真正的限制在创建优惠的事务里。
// 查询失败时按 0 计数并禁止创建，错误写入 Error 字段。
func (s *QuotaService) Evaluate(actor *model.Actor) *dto.QuotaInfo {
	start, end := s.CurrentMonth()

	tier := plan.Entry
	if actor != nil {
		tier = plan.For(actor.Tier).Name
	}
	limit := plan.For(tier).MaxOffers

	info := &dto.QuotaInfo{
		Tier:        tier,
		MaxOffers:   limit,
		PeriodStart: start.Format(time.RFC3339),
		PeriodEnd:   end.Format(time.RFC3339),
	}

	if actor == nil {
		info.Remaining = int64(limit)
		return info
	}

	count, err := s.offerRepo.CountByMerchantBetween(actor.ID, start, end)
	if err != nil {
		log.Error().Err(err).Int64("user_id", actor.ID).Msg("count monthly offers failed")
		info.Remaining = int64(limit)
		info.Error = "failed to load offer usage"
		return info
	}

	info.UsedThisMonth = count
	info.Remaining = int64(limit) - count
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	info.CanCreate = count < int64(limit)
	return info
}
