package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户，默认是顾客
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	user := &model.User{
		Email:            fmt.Sprintf("user_%d@example.com", n),
		PasswordHash:     "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Name:             fmt.Sprintf("User %d", n),
		Role:             model.RoleCustomer,
		IsActive:         true,
		SubscriptionTier: plan.Entry,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	// gorm 对零值 bool 使用默认值 true，这里显式写回
	if !user.IsActive {
		db.Model(user).Update("is_active", false)
	}

	return user
}

// TestMerchant 创建商家用户
func TestMerchant(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()
	return TestUser(t, db, append([]func(*model.User){WithRole(model.RoleMerchant)}, opts...)...)
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithName 设置姓名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithStoreName 设置店铺名
func WithStoreName(name string) func(*model.User) {
	return func(u *model.User) {
		u.StoreName = name
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithTier 设置订阅套餐
func WithTier(tier string) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionTier = tier
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// Inactive 创建已停用用户
func Inactive() func(*model.User) {
	return func(u *model.User) {
		u.IsActive = false
	}
}

// TestOffer 创建测试优惠，默认已审核通过、7 天后过期
func TestOffer(t *testing.T, db *gorm.DB, merchantID int64, opts ...func(*model.Offer)) *model.Offer {
	t.Helper()

	n := next()
	original := decimal.NewFromInt(1000)
	offer := &model.Offer{
		MerchantID:         merchantID,
		Title:              fmt.Sprintf("Offer %d", n),
		Description:        "Test offer",
		Category:           "food",
		City:               "Pune",
		Location:           "FC Road",
		OriginalPrice:      original,
		DiscountPercentage: 20,
		DiscountedPrice:    model.DiscountedPriceFor(original, 20),
		ExpiryDate:         time.Now().UTC().Add(7 * 24 * time.Hour),
		RedemptionMode:     model.RedemptionModeInStore,
		ListingType:        model.ListingTypeLocal,
		Status:             model.OfferStatusApproved,
		IsActive:           true,
	}

	for _, opt := range opts {
		opt(offer)
	}

	if err := db.Create(offer).Error; err != nil {
		t.Fatalf("Failed to create test offer: %v", err)
	}
	if !offer.IsActive {
		db.Model(offer).Update("is_active", false)
	}

	return offer
}

// WithTitle 设置标题
func WithTitle(title string) func(*model.Offer) {
	return func(o *model.Offer) {
		o.Title = title
	}
}

// WithOfferStatus 设置审核状态
func WithOfferStatus(status string) func(*model.Offer) {
	return func(o *model.Offer) {
		o.Status = status
	}
}

// WithListingType 设置展示分区
func WithListingType(listingType string) func(*model.Offer) {
	return func(o *model.Offer) {
		o.ListingType = listingType
	}
}

// WithCategory 设置分类
func WithCategory(category string) func(*model.Offer) {
	return func(o *model.Offer) {
		o.Category = category
	}
}

// WithExpiry 设置过期时间
func WithExpiry(expiry time.Time) func(*model.Offer) {
	return func(o *model.Offer) {
		o.ExpiryDate = expiry.UTC()
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(createdAt time.Time) func(*model.Offer) {
	return func(o *model.Offer) {
		o.CreatedAt = createdAt.UTC()
	}
}

// WithOfferStoreName 设置优惠上冗余的店铺名
func WithOfferStoreName(name string) func(*model.Offer) {
	return func(o *model.Offer) {
		o.StoreName = name
	}
}

// OfferInactive 创建已下架优惠
func OfferInactive() func(*model.Offer) {
	return func(o *model.Offer) {
		o.IsActive = false
	}
}

// TestRedemption 创建核销申请
func TestRedemption(t *testing.T, db *gorm.DB, offer *model.Offer, customerID int64, status string) *model.Redemption {
	t.Helper()

	r := &model.Redemption{
		OfferID:    offer.ID,
		CustomerID: customerID,
		MerchantID: offer.MerchantID,
		Code:       fmt.Sprintf("T%07d", next()),
		Status:     status,
	}

	if err := db.Create(r).Error; err != nil {
		t.Fatalf("Failed to create test redemption: %v", err)
	}

	return r
}

// TestSubscription 创建订阅记录
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, planName, status string, periodEnd *time.Time) *model.Subscription {
	t.Helper()

	if periodEnd != nil {
		utc := periodEnd.UTC()
		periodEnd = &utc
	}
	sub := &model.Subscription{
		UserID:                 userID,
		RazorpaySubscriptionID: fmt.Sprintf("sub_test_%d", next()),
		PlanName:               planName,
		Status:                 status,
		CurrentPeriodEnd:       periodEnd,
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}
