package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Role      string `json:"role" binding:"omitempty,oneof=customer merchant"`
	StoreName string `json:"store_name" binding:"omitempty,max=150"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	City      string `json:"city" binding:"omitempty,max=100"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID int64 `json:"user_id"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// PasswordResetRequest 找回密码请求，字段名和前端保持一致
type PasswordResetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	RedirectURL string `json:"redirectUrl" binding:"omitempty,url"`
}

// PasswordResetConfirmRequest 使用重置令牌设置新密码
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID               int64  `json:"id"`
	Email            string `json:"email,omitempty"`
	Name             string `json:"name"`
	StoreName        string `json:"store_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	City             string `json:"city,omitempty"`
	AvatarURL        string `json:"avatar_url"`
	Role             string `json:"role"`
	IsActive         bool   `json:"is_active"`
	SubscriptionTier string `json:"subscription_tier"`
	LoyaltyPoints    int    `json:"loyalty_points"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	StoreName *string `json:"store_name,omitempty" binding:"omitempty,max=150"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=20"`
	City      *string `json:"city,omitempty" binding:"omitempty,max=100"`
}

// QuotaInfo 本月发布配额
type QuotaInfo struct {
	Tier          string `json:"tier"`
	MaxOffers     int    `json:"max_offers"`
	UsedThisMonth int64  `json:"used_this_month"`
	Remaining     int64  `json:"remaining"`
	CanCreate     bool   `json:"can_create"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	Error         string `json:"error,omitempty"`
}
