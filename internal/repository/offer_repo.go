package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/internal/model"
)

// ErrQuotaExceeded 本月发布数量已达到套餐上限
var ErrQuotaExceeded = errors.New("monthly offer quota reached")

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) GetByID(id int64) (*model.Offer, error) {
	var offer model.Offer
	err := r.db.Where("id = ?", id).First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// CountByMerchantBetween 统计商家在 [start, end] 内创建的优惠数量
func (r *OfferRepository) CountByMerchantBetween(merchantID int64, start, end time.Time) (int64, error) {
	return countByMerchantBetween(r.db, merchantID, start, end)
}

func countByMerchantBetween(db *gorm.DB, merchantID int64, start, end time.Time) (int64, error) {
	var count int64
	err := db.Model(&model.Offer{}).
		Where("merchant_id = ? AND created_at BETWEEN ? AND ?", merchantID, start.UTC(), end.UTC()).
		Count(&count).Error
	return count, err
}

// CreateWithinQuota 在事务内先锁定商家行，再统计本月数量，未超限才插入。
// 同一商家的并发创建会在行锁上排队，计数和插入之间没有竞争窗口。
func (r *OfferRepository) CreateWithinQuota(offer *model.Offer, start, end time.Time, quota int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", offer.MerchantID).
			Update("offers_created_total", gorm.Expr("offers_created_total + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		count, err := countByMerchantBetween(tx, offer.MerchantID, start, end)
		if err != nil {
			return err
		}
		if count >= int64(quota) {
			return ErrQuotaExceeded
		}

		return tx.Create(offer).Error
	})
}

// ListActive 当前可展示的优惠：已上架、已审核、未过期，按创建时间倒序
func (r *OfferRepository) ListActive(now time.Time, limit int) ([]*model.Offer, error) {
	var offers []*model.Offer
	err := r.db.
		Where("is_active = ? AND status = ? AND expiry_date >= ?", true, model.OfferStatusApproved, now.UTC()).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&offers).Error
	return offers, err
}

func (r *OfferRepository) ListByMerchant(merchantID int64, page, pageSize int) ([]*model.Offer, int64, error) {
	var offers []*model.Offer
	var total int64

	query := r.db.Model(&model.Offer{}).Where("merchant_id = ?", merchantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&offers).Error
	return offers, total, err
}

// ListByStatus 审核队列，status 为空时返回全部
func (r *OfferRepository) ListByStatus(status string, page, pageSize int) ([]*model.Offer, int64, error) {
	var offers []*model.Offer
	var total int64

	query := r.db.Model(&model.Offer{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at ASC, id ASC").Offset(offset).Limit(pageSize).Find(&offers).Error
	return offers, total, err
}

// TransitionStatus 仅当当前状态属于 from 时更新，返回是否更新成功
func (r *OfferRepository) TransitionStatus(id int64, from []string, to string) (bool, error) {
	res := r.db.Model(&model.Offer{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *OfferRepository) UpdateImage(id int64, url string) error {
	return r.db.Model(&model.Offer{}).Where("id = ?", id).Update("image_url", url).Error
}

// DeleteByMerchant 只删除属于该商家的优惠
func (r *OfferRepository) DeleteByMerchant(id, merchantID int64) (bool, error) {
	res := r.db.Where("id = ? AND merchant_id = ?", id, merchantID).Delete(&model.Offer{})
	return res.RowsAffected > 0, res.Error
}

// CountExpiredActive 已过期但仍标记为上架的优惠数量
func (r *OfferRepository) CountExpiredActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Offer{}).
		Where("is_active = ? AND expiry_date < ?", true, now.UTC()).
		Count(&count).Error
	return count, err
}

// DeactivateExpired 下架所有已过期的优惠
func (r *OfferRepository) DeactivateExpired(now time.Time) (int64, error) {
	res := r.db.Model(&model.Offer{}).
		Where("is_active = ? AND expiry_date < ?", true, now.UTC()).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
