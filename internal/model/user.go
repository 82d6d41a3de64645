package model

import (
	"time"
)

// 用户角色
const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

type User struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	Email              string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"size:255;not null" json:"-"`
	Name               string    `gorm:"size:100" json:"name"`
	StoreName          string    `gorm:"size:150" json:"store_name,omitempty"`
	Phone              string    `gorm:"size:20" json:"phone,omitempty"`
	City               string    `gorm:"size:100" json:"city,omitempty"`
	AvatarURL          string    `gorm:"size:500" json:"avatar_url,omitempty"`
	Role               string    `gorm:"size:20;not null;default:customer;index" json:"role"`
	IsActive           bool      `gorm:"default:true;index" json:"is_active"`
	SubscriptionTier   string    `gorm:"size:20;default:Silver" json:"subscription_tier"`
	LoyaltyPoints      int       `gorm:"default:0" json:"loyalty_points"`
	OffersCreatedTotal int       `gorm:"default:0" json:"offers_created_total"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "profiles"
}

// Actor 返回请求链路中使用的身份快照
func (u *User) Actor() *Actor {
	return &Actor{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Tier:     u.SubscriptionTier,
		IsActive: u.IsActive,
	}
}
