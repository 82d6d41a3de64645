package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert 每个用户只保留一条订阅记录，重复订阅时覆盖
func (r *SubscriptionRepository) Upsert(sub *model.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"razorpay_subscription_id",
			"razorpay_plan_id",
			"plan_name",
			"status",
			"amount",
			"currency",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepository) GetByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByRazorpayID(razorpayID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("razorpay_subscription_id = ?", razorpayID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ApplyStatus 更新订阅状态并同步用户套餐，两者在同一事务中
func (r *SubscriptionRepository) ApplyStatus(sub *model.Subscription, status string, periodEnd *time.Time, tier string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{"status": status}
		if periodEnd != nil {
			fields["current_period_end"] = periodEnd.UTC()
		}
		if err := tx.Model(&model.Subscription{}).Where("id = ?", sub.ID).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", sub.UserID).Update("subscription_tier", tier).Error
	})
}

// ExpireLapsed 把计费周期已结束的有效订阅置为过期，并把用户降回入门套餐
func (r *SubscriptionRepository) ExpireLapsed(now time.Time) (int64, error) {
	var expired int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var userIDs []int64
		err := tx.Model(&model.Subscription{}).
			Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
				model.SubscriptionStatusActive, now.UTC()).
			Pluck("user_id", &userIDs).Error
		if err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		res := tx.Model(&model.Subscription{}).
			Where("user_id IN ? AND status = ?", userIDs, model.SubscriptionStatusActive).
			Update("status", model.SubscriptionStatusExpired)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected

		return tx.Model(&model.User{}).Where("id IN ?", userIDs).
			Update("subscription_tier", plan.Entry).Error
	})
	return expired, err
}

// CountLapsed 计费周期已结束但仍为有效状态的订阅数量
func (r *SubscriptionRepository) CountLapsed(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
			model.SubscriptionStatusActive, now.UTC()).
		Count(&count).Error
	return count, err
}
