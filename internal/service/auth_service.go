package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/jwt"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/pkg/queue"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetToken  = errors.New("reset link is invalid or has expired")
	ErrResetNotAvailable  = errors.New("password reset is not available")
)

// PasswordResetNotice 找回密码的统一提示，不暴露账号是否存在
const PasswordResetNotice = "If an account exists for that email, a password reset link has been sent."

const (
	resetTokenPrefix = "password_reset:"
	resetTokenTTL    = 30 * time.Minute
)

// EmailQueue 异步邮件队列，由 queue.Queue 实现
type EmailQueue interface {
	Push(ctx context.Context, job *queue.EmailJob) error
}

type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	mailQ    EmailQueue
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, mailQ EmailQueue, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		mailQ:    mailQ,
		cfg:      cfg,
	}
}

// Register 用户注册，只能注册顾客或商家
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	emailAddr := normalizeEmail(req.Email)

	exists, err := s.userRepo.ExistsByEmail(emailAddr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role != model.RoleMerchant {
		role = model.RoleCustomer
	}

	user := &model.User{
		Email:            emailAddr,
		PasswordHash:     string(hashedPassword),
		Name:             strings.TrimSpace(req.Name),
		StoreName:        strings.TrimSpace(req.StoreName),
		Phone:            req.Phone,
		City:             req.City,
		Role:             role,
		IsActive:         true,
		SubscriptionTier: plan.Entry,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("role", role).Msg("user registered")
	return &dto.RegisterResponse{UserID: user.ID}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	token, err := jwt.GenerateToken(user.ID, user.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  BuildUserInfo(user, true),
	}, nil
}

// RequestPasswordReset 无论邮箱是否存在，调用方都应返回同样的提示。
// 令牌和邮件只为存在且启用的账号生成，失败只记录日志。
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) {
	// 先生成令牌，两条路径的工作量保持一致
	token := uuid.NewString()

	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("lookup user for password reset failed")
		}
		return
	}
	if !user.IsActive {
		return
	}
	if s.rdb == nil || s.mailQ == nil {
		log.Error().Err(ErrResetNotAvailable).Int64("user_id", user.ID).Msg("password reset skipped")
		return
	}

	if err := s.rdb.Set(ctx, resetTokenPrefix+token, user.ID, resetTokenTTL).Err(); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("store reset token failed")
		return
	}

	link := s.resetLink(req.RedirectURL, token)
	html, err := email.Render(email.TplPasswordReset, email.PasswordResetData{Name: user.Name, ResetLink: link})
	if err != nil {
		log.Error().Err(err).Msg("render password reset email failed")
		return
	}

	job := &queue.EmailJob{
		ID:       uuid.NewString(),
		Template: email.TplPasswordReset,
		To:       []string{user.Email},
		Subject:  "Reset your Local Deals password",
		HTML:     html,
		QueuedAt: time.Now().UTC(),
	}
	if err := s.mailQ.Push(ctx, job); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("enqueue password reset email failed")
		return
	}
	log.Info().Int64("user_id", user.ID).Str("job_id", job.ID).Msg("password reset email queued")
}

// ConfirmPasswordReset 令牌只能使用一次
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error {
	if s.rdb == nil {
		return ErrResetNotAvailable
	}

	key := resetTokenPrefix + req.Token
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidResetToken
		}
		return err
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return err
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(userID, string(hashed)); err != nil {
		return err
	}

	log.Info().Int64("user_id", userID).Msg("password reset completed")
	return nil
}

// resetLink 在跳转地址上追加 token 参数；未提供或主机不在白名单时使用默认前端地址
func (s *AuthService) resetLink(redirectURL, token string) string {
	base := strings.TrimRight(s.cfg.Email.AppURL, "/") + "/reset-password"
	if redirectURL != "" {
		if s.redirectAllowed(redirectURL) {
			base = redirectURL
		} else {
			log.Warn().Str("redirect_url", redirectURL).Msg("reset redirect host not allowed, using app url")
		}
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// redirectAllowed 只接受 http(s)，主机须与 AppURL 相同或在 allowed_redirect_hosts 中
func (s *AuthService) redirectAllowed(redirectURL string) bool {
	u, err := url.Parse(redirectURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if app, err := url.Parse(s.cfg.Email.AppURL); err == nil && app.Host != "" && strings.ToLower(app.Host) == host {
		return true
	}
	for _, allowed := range s.cfg.Email.AllowedRedirectHosts {
		if strings.ToLower(strings.TrimSpace(allowed)) == host {
			return true
		}
	}
	return false
}

// BuildUserInfo withEmail 为 false 时不返回邮箱
func BuildUserInfo(user *model.User, withEmail bool) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:               user.ID,
		Name:             user.Name,
		StoreName:        user.StoreName,
		Phone:            user.Phone,
		City:             user.City,
		AvatarURL:        user.AvatarURL,
		Role:             user.Role,
		IsActive:         user.IsActive,
		SubscriptionTier: plan.For(user.SubscriptionTier).Name,
		LoyaltyPoints:    user.LoyaltyPoints,
		CreatedAt:        user.CreatedAt.Format(time.RFC3339),
	}
	if withEmail {
		info.Email = user.Email
	}
	return info
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
