package model

import (
	"time"
)

// 订阅状态（与支付网关状态保持一致）
const (
	SubscriptionStatusCreated   = "created"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusHalted    = "halted"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusCompleted = "completed"
	SubscriptionStatusExpired   = "expired"
)

type Subscription struct {
	ID                     int64      `gorm:"primaryKey" json:"id"`
	UserID                 int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	RazorpaySubscriptionID string     `gorm:"size:64;index" json:"razorpay_subscription_id"`
	RazorpayPlanID         string     `gorm:"size:64" json:"razorpay_plan_id,omitempty"`
	PlanName               string     `gorm:"size:20;not null" json:"plan_name"`
	Status                 string     `gorm:"size:20;default:created;index" json:"status"`
	Amount                 int64      `json:"amount"`
	Currency               string     `gorm:"size:8" json:"currency"`
	CurrentPeriodEnd       *time.Time `gorm:"index" json:"current_period_end,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
