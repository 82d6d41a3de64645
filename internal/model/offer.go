package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 审核状态
const (
	OfferStatusApplied  = "applied"
	OfferStatusInReview = "in_review"
	OfferStatusApproved = "approved"
	OfferStatusRejected = "rejected"
)

// 展示分区
const (
	ListingTypeHot      = "hot"
	ListingTypeTrending = "trending"
	ListingTypeLocal    = "local"
)

// 核销方式
const (
	RedemptionModeOnline  = "online"
	RedemptionModeInStore = "in_store"
	RedemptionModeBoth    = "both"
)

type Offer struct {
	ID                 int64           `gorm:"primaryKey" json:"id"`
	MerchantID         int64           `gorm:"not null;index:idx_offers_merchant_created,priority:1" json:"merchant_id"`
	Title              string          `gorm:"size:200;not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	Category           string          `gorm:"size:50;index" json:"category"`
	District           string          `gorm:"size:100" json:"district"`
	City               string          `gorm:"size:100" json:"city"`
	Location           string          `gorm:"size:255" json:"location"`
	StoreName          string          `gorm:"size:150" json:"store_name,omitempty"`
	ImageURL           string          `gorm:"size:500" json:"image_url,omitempty"`
	OriginalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"original_price"`
	DiscountPercentage int             `gorm:"not null" json:"discount_percentage"`
	DiscountedPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discounted_price"`
	ExpiryDate         time.Time       `gorm:"not null;index" json:"expiry_date"`
	RedemptionMode     string          `gorm:"size:20;default:in_store" json:"redemption_mode"`
	ListingType        string          `gorm:"size:20;default:local;index" json:"listing_type"`
	Status             string          `gorm:"size:20;default:applied;index" json:"status"`
	IsActive           bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt          time.Time       `gorm:"index:idx_offers_merchant_created,priority:2" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Offer) TableName() string {
	return "offers"
}

// DiscountedPriceFor 按原价和折扣百分比计算折后价，保留两位小数
func DiscountedPriceFor(original decimal.Decimal, pct int) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return original.Mul(hundred.Sub(decimal.NewFromInt(int64(pct)))).Div(hundred).Round(2)
}
