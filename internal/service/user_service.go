package service

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/oss"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var ErrCannotDisableSelf = errors.New("admins cannot disable their own account")

// AvatarStore 头像存储，由 OSS 客户端实现
type AvatarStore interface {
	UploadAvatar(userID int64, data []byte, ext string) (string, error)
}

type UserService struct {
	userRepo *repository.UserRepository
	avatars  AvatarStore
}

func NewUserService(userRepo *repository.UserRepository, avatars AvatarStore) *UserService {
	return &UserService{
		userRepo: userRepo,
		avatars:  avatars,
	}
}

// LoadActor 认证中间件每个请求调用一次，停用账号不能继续使用令牌
func (s *UserService) LoadActor(userID int64) (*model.Actor, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user.Actor(), nil
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(actor *model.Actor) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return BuildUserInfo(user, true), nil
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(actor *model.Actor, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.StoreName != nil {
		user.StoreName = strings.TrimSpace(*req.StoreName)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.City != nil {
		user.City = *req.City
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return BuildUserInfo(user, true), nil
}

// UploadAvatar 上传用户头像到 OSS
func (s *UserService) UploadAvatar(actor *model.Actor, file io.Reader, filename string) (string, error) {
	if s.avatars == nil {
		return "", ErrStorageNotAvailable
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !oss.AllowedImageExt(ext) {
		return "", ErrUnsupportedImage
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxImageSize {
		return "", ErrImageTooLarge
	}

	avatarURL, err := s.avatars.UploadAvatar(actor.ID, data, ext)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateFields(actor.ID, map[string]interface{}{"avatar_url": avatarURL}); err != nil {
		return "", err
	}
	return avatarURL, nil
}

// ListUsers 后台用户列表
func (s *UserService) ListUsers(page, pageSize int, role string) ([]*dto.UserInfo, int64, error) {
	users, total, err := s.userRepo.List(page, pageSize, role)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		items = append(items, BuildUserInfo(u, true))
	}
	return items, total, nil
}

// SetActive 后台启用或停用账号
func (s *UserService) SetActive(actor *model.Actor, userID int64, active bool) error {
	if actor != nil && actor.ID == userID && !active {
		return ErrCannotDisableSelf
	}
	ok, err := s.userRepo.SetActive(userID, active)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	log.Info().Int64("user_id", userID).Bool("active", active).Msg("user activation changed")
	return nil
}
