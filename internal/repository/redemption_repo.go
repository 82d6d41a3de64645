package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/localdeals_server/internal/model"
)

// ErrRedemptionPending 顾客对同一优惠已有待处理的申请
var ErrRedemptionPending = errors.New("redemption already pending")

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// GetByIDWithParties 连同优惠和双方用户一起加载
func (r *RedemptionRepository) GetByIDWithParties(id int64) (*model.Redemption, error) {
	var redemption model.Redemption
	err := r.db.Preload("Offer").Preload("Customer").Preload("Merchant").
		Where("id = ?", id).First(&redemption).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// CreateIfNoPending 在事务内锁定顾客行，确认没有待处理申请后才插入。
// 同一顾客的并发申请在行锁上排队，检查和插入之间没有竞争窗口。
func (r *RedemptionRepository) CreateIfNoPending(redemption *model.Redemption) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var customer model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", redemption.CustomerID).First(&customer).Error; err != nil {
			return err
		}

		pending, err := existsPending(tx, redemption.OfferID, redemption.CustomerID)
		if err != nil {
			return err
		}
		if pending {
			return ErrRedemptionPending
		}
		return tx.Create(redemption).Error
	})
}

// existsPending 顾客对同一优惠是否已有待处理的申请
func existsPending(db *gorm.DB, offerID, customerID int64) (bool, error) {
	var count int64
	err := db.Model(&model.Redemption{}).
		Where("offer_id = ? AND customer_id = ? AND status = ?", offerID, customerID, model.RedemptionStatusRequested).
		Count(&count).Error
	return count > 0, err
}

// Decide 从 requested 转到终态；批准时在同一事务里给顾客加积分。
// 返回 false 表示记录已不在 requested 状态。
func (r *RedemptionRepository) Decide(id int64, status string, at time.Time, loyaltyPoints int) (bool, error) {
	decided := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var redemption model.Redemption
		if err := tx.Where("id = ?", id).First(&redemption).Error; err != nil {
			return err
		}

		decidedAt := at.UTC()
		res := tx.Model(&model.Redemption{}).
			Where("id = ? AND status = ?", id, model.RedemptionStatusRequested).
			Updates(map[string]interface{}{"status": status, "decided_at": decidedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		decided = true

		if status == model.RedemptionStatusApproved && loyaltyPoints > 0 {
			return tx.Model(&model.User{}).Where("id = ?", redemption.CustomerID).
				Update("loyalty_points", gorm.Expr("loyalty_points + ?", loyaltyPoints)).Error
		}
		return nil
	})
	return decided, err
}

// ListForUser 列出用户作为顾客或商家参与的核销记录
func (r *RedemptionRepository) ListForUser(userID int64, asMerchant bool, page, pageSize int) ([]*model.Redemption, int64, error) {
	var redemptions []*model.Redemption
	var total int64

	column := "customer_id"
	if asMerchant {
		column = "merchant_id"
	}

	query := r.db.Model(&model.Redemption{}).Where(column+" = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Offer").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(pageSize).
		Find(&redemptions).Error
	return redemptions, total, err
}
