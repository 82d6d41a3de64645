package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/metrics"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/pkg/razorpay"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var (
	ErrPaymentNotConfigured = errors.New("payment gateway is not configured")
	ErrInvalidPlan          = errors.New("invalid plan selected")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// 事件属于用户已被替换掉的旧订阅
	errStaleSubscriptionEvent = errors.New("stale subscription event")
)

const planCacheKeyPrefix = "razorpay:plan:"

// Gateway 支付网关，由 razorpay.Client 实现
type Gateway interface {
	KeyID() string
	CreatePlan(ctx context.Context, req *razorpay.CreatePlanRequest) (*razorpay.Plan, error)
	CreateSubscription(ctx context.Context, req *razorpay.CreateSubscriptionRequest) (*razorpay.Subscription, error)
}

type SubscriptionService struct {
	gateway       Gateway
	subRepo       *repository.SubscriptionRepository
	userRepo      *repository.UserRepository
	rdb           *redis.Client
	totalCount    int
	webhookSecret string
}

// NewSubscriptionService gateway 为 nil 表示未配置支付，创建订阅时返回 ErrPaymentNotConfigured
func NewSubscriptionService(
	gateway Gateway,
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	rdb *redis.Client,
	cfg *config.Config,
) *SubscriptionService {
	totalCount := cfg.Payment.TotalCount
	if totalCount <= 0 {
		totalCount = 12
	}
	return &SubscriptionService{
		gateway:       gateway,
		subRepo:       subRepo,
		userRepo:      userRepo,
		rdb:           rdb,
		totalCount:    totalCount,
		webhookSecret: cfg.Payment.RazorpayWebhookSecret,
	}
}

// Create 为当前用户创建付费套餐订阅。
// 本地记录写入失败时仍返回成功，但标记 Provisional，由 webhook 补齐。
func (s *SubscriptionService) Create(ctx context.Context, actor *model.Actor, planName string) (*dto.SubscriptionResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentNotConfigured
	}

	billing, ok := plan.BillingFor(planName)
	if !ok {
		return nil, ErrInvalidPlan
	}

	planID, err := s.gatewayPlanID(ctx, planName, billing)
	if err != nil {
		metrics.SubscriptionsProvisioned.WithLabelValues(planName, "error").Inc()
		return nil, err
	}

	sub, err := s.gateway.CreateSubscription(ctx, &razorpay.CreateSubscriptionRequest{
		PlanID:         planID,
		TotalCount:     s.totalCount,
		CustomerNotify: 1,
		Notes: map[string]string{
			"user_id":   strconv.FormatInt(actor.ID, 10),
			"plan_name": planName,
		},
	})
	if err != nil {
		metrics.SubscriptionsProvisioned.WithLabelValues(planName, "error").Inc()
		return nil, err
	}

	resp := &dto.SubscriptionResponse{
		SubscriptionID: sub.ID,
		Key:            s.gateway.KeyID(),
		Amount:         billing.Amount,
		Currency:       billing.Currency,
		Name:           billing.DisplayName,
	}

	status := sub.Status
	if status == "" {
		status = model.SubscriptionStatusCreated
	}
	err = s.subRepo.Upsert(&model.Subscription{
		UserID:                 actor.ID,
		RazorpaySubscriptionID: sub.ID,
		RazorpayPlanID:         planID,
		PlanName:               planName,
		Status:                 status,
		Amount:                 billing.Amount,
		Currency:               billing.Currency,
	})
	if err != nil {
		log.Error().Err(err).
			Int64("user_id", actor.ID).
			Str("subscription_id", sub.ID).
			Msg("store subscription failed, returning provisional result")
		resp.Provisional = true
	}

	metrics.SubscriptionsProvisioned.WithLabelValues(planName, "ok").Inc()
	return resp, nil
}

// gatewayPlanID 复用已创建的网关计划，没有缓存时新建
func (s *SubscriptionService) gatewayPlanID(ctx context.Context, planName string, billing plan.Billing) (string, error) {
	key := planCacheKeyPrefix + planName
	if s.rdb != nil {
		id, err := s.rdb.Get(ctx, key).Result()
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("plan", planName).Msg("read plan cache failed")
		}
	}

	p, err := s.gateway.CreatePlan(ctx, &razorpay.CreatePlanRequest{
		Period:   billing.Period,
		Interval: billing.Interval,
		Item: razorpay.PlanItem{
			Name:     billing.DisplayName,
			Amount:   billing.Amount,
			Currency: billing.Currency,
		},
		Notes: map[string]string{"plan_name": planName},
	})
	if err != nil {
		return "", err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, p.ID, 0).Err(); err != nil {
			log.Warn().Err(err).Str("plan", planName).Msg("write plan cache failed")
		}
	}
	return p.ID, nil
}

// Current 当前用户的订阅
func (s *SubscriptionService) Current(actor *model.Actor) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// HandleWebhook 校验签名并按网关事件同步订阅状态和用户套餐
func (s *SubscriptionService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.webhookSecret == "" {
		return ErrPaymentNotConfigured
	}
	evt, err := razorpay.ParseEvent(body, signature, s.webhookSecret)
	if err != nil {
		return err
	}

	var status string
	switch evt.Event {
	case razorpay.EventSubscriptionActivated, razorpay.EventSubscriptionCharged:
		status = model.SubscriptionStatusActive
	case razorpay.EventSubscriptionHalted:
		status = model.SubscriptionStatusHalted
	case razorpay.EventSubscriptionCancelled:
		status = model.SubscriptionStatusCancelled
	case razorpay.EventSubscriptionCompleted:
		status = model.SubscriptionStatusCompleted
	default:
		log.Debug().Str("event", evt.Event).Msg("ignore razorpay event")
		return nil
	}

	entity := evt.Payload.Subscription.Entity
	sub, err := s.localSubscription(&entity)
	if errors.Is(err, errStaleSubscriptionEvent) {
		log.Warn().
			Str("event", evt.Event).
			Str("subscription_id", entity.ID).
			Str("user_id", entity.Notes["user_id"]).
			Msg("ignore event for replaced subscription")
		return nil
	}
	if err != nil {
		return err
	}

	var periodEnd *time.Time
	if entity.CurrentEnd != nil && *entity.CurrentEnd > 0 {
		t := time.Unix(*entity.CurrentEnd, 0).UTC()
		periodEnd = &t
	}

	tier := plan.Entry
	if status == model.SubscriptionStatusActive {
		tier = sub.PlanName
	}

	if err := s.subRepo.ApplyStatus(sub, status, periodEnd, tier); err != nil {
		return err
	}
	log.Info().
		Int64("user_id", sub.UserID).
		Str("subscription_id", entity.ID).
		Str("status", status).
		Str("tier", tier).
		Msg("subscription updated from webhook")
	return nil
}

// localSubscription 找到本地订阅；创建时未落库的，用 notes 里的 user_id 补一条。
// 用户已有另一个网关订阅时不补，避免旧订阅的事件覆盖当前套餐
func (s *SubscriptionService) localSubscription(entity *razorpay.Subscription) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByRazorpayID(entity.ID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	userID, perr := strconv.ParseInt(entity.Notes["user_id"], 10, 64)
	planName := entity.Notes["plan_name"]
	billing, ok := plan.BillingFor(planName)
	if perr != nil || !ok {
		return nil, ErrSubscriptionNotFound
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, ErrSubscriptionNotFound
	}

	current, err := s.subRepo.GetByUserID(userID)
	switch {
	case err == nil:
		if current.RazorpaySubscriptionID != "" && current.RazorpaySubscriptionID != entity.ID {
			return nil, errStaleSubscriptionEvent
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if err := s.subRepo.Upsert(&model.Subscription{
		UserID:                 userID,
		RazorpaySubscriptionID: entity.ID,
		RazorpayPlanID:         entity.PlanID,
		PlanName:               planName,
		Status:                 model.SubscriptionStatusCreated,
		Amount:                 billing.Amount,
		Currency:               billing.Currency,
	}); err != nil {
		return nil, err
	}
	return s.subRepo.GetByRazorpayID(entity.ID)
}

// ExpireLapsed 定时任务调用，返回过期的订阅数
func (s *SubscriptionService) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	return s.subRepo.ExpireLapsed(now)
}
