package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOfferRequest 商家发布优惠，折后价由服务端计算
type CreateOfferRequest struct {
	Title              string          `json:"title" binding:"required,max=200"`
	Description        string          `json:"description" binding:"omitempty,max=2000"`
	Category           string          `json:"category" binding:"required,max=50"`
	District           string          `json:"district" binding:"omitempty,max=100"`
	City               string          `json:"city" binding:"omitempty,max=100"`
	Location           string          `json:"location" binding:"omitempty,max=255"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountPercentage int             `json:"discount_percentage" binding:"required,min=1,max=99"`
	ExpiryDate         time.Time       `json:"expiry_date" binding:"required,notpast"`
	RedemptionMode     string          `json:"redemption_mode" binding:"omitempty,oneof=online in_store both"`
	ListingType        string          `json:"listing_type" binding:"omitempty,oneof=hot trending local"`
	StoreName          string          `json:"store_name" binding:"omitempty,max=150"`
}

// OfferItem 列表中的优惠，StoreName 为解析后的展示名
type OfferItem struct {
	ID                 int64           `json:"id"`
	MerchantID         int64           `json:"merchant_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	District           string          `json:"district,omitempty"`
	City               string          `json:"city,omitempty"`
	Location           string          `json:"location,omitempty"`
	StoreName          string          `json:"store_name"`
	ImageURL           string          `json:"image_url,omitempty"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountPercentage int             `json:"discount_percentage"`
	DiscountedPrice    decimal.Decimal `json:"discounted_price"`
	ExpiryDate         time.Time       `json:"expiry_date"`
	RedemptionMode     string          `json:"redemption_mode"`
	ListingType        string          `json:"listing_type"`
	Status             string          `json:"status"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ListingQuery 公开列表的筛选参数
type ListingQuery struct {
	Type     string `form:"type" binding:"omitempty,oneof=hot trending local"`
	Category string `form:"category"`
	Q        string `form:"q"`
}

// ListingResponse 公开列表，出错时各集合为空并携带 error
type ListingResponse struct {
	Offers     []*OfferItem `json:"offers"`
	HotOffers  []*OfferItem `json:"hot_offers"`
	Trending   []*OfferItem `json:"trending"`
	LocalDeals []*OfferItem `json:"local_deals"`
	Error      string       `json:"error,omitempty"`
}

// UpdateOfferStatusRequest 后台审核
type UpdateOfferStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=in_review approved rejected"`
}

// SetUserActiveRequest 后台启用或停用用户
type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
	Status   string `form:"status"`
	Role     string `form:"role"`
}
