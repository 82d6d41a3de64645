package model

import (
	"time"
)

// 核销状态
const (
	RedemptionStatusRequested = "requested"
	RedemptionStatusApproved  = "approved"
	RedemptionStatusRejected  = "rejected"
)

type Redemption struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	OfferID    int64      `gorm:"not null;index" json:"offer_id"`
	CustomerID int64      `gorm:"not null;index" json:"customer_id"`
	MerchantID int64      `gorm:"not null;index" json:"merchant_id"`
	Code       string     `gorm:"size:16;uniqueIndex" json:"code"`
	Status     string     `gorm:"size:20;default:requested;index" json:"status"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// 关联
	Offer    *Offer `gorm:"foreignKey:OfferID" json:"offer,omitempty"`
	Customer *User  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Merchant *User  `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
