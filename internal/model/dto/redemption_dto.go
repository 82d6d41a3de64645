package dto

import "time"

// RedemptionInfo 核销记录
type RedemptionInfo struct {
	ID         int64      `json:"id"`
	OfferID    int64      `json:"offer_id"`
	OfferTitle string     `json:"offer_title,omitempty"`
	CustomerID int64      `json:"customer_id"`
	MerchantID int64      `json:"merchant_id"`
	Code       string     `json:"code"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}

// RedemptionEmailRequest 核销通知邮件，字段名和前端保持一致
type RedemptionEmailRequest struct {
	Type          string `json:"type" binding:"required"`
	RedemptionID  string `json:"redemptionId" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required,email"`
	MerchantEmail string `json:"merchantEmail" binding:"required,email"`
	CustomerName  string `json:"customerName"`
	MerchantName  string `json:"merchantName"`
	OfferTitle    string `json:"offerTitle"`
	StoreName     string `json:"storeName"`
}

// DeliveryResponse 双方邮件的投递结果，一方失败不影响另一方
type DeliveryResponse struct {
	CustomerEmailID string `json:"customerEmailId,omitempty"`
	MerchantEmailID string `json:"merchantEmailId,omitempty"`
	CustomerError   string `json:"customerError,omitempty"`
	MerchantError   string `json:"merchantError,omitempty"`
}
