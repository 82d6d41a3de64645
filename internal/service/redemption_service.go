package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/pubsub"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var (
	ErrNotCustomer          = errors.New("only customers can redeem offers")
	ErrOfferUnavailable     = errors.New("offer is not available for redemption")
	ErrRedemptionPending    = errors.New("you already have a pending redemption for this offer")
	ErrRedemptionNotFound   = errors.New("redemption not found")
	ErrRedemptionDecided    = errors.New("redemption has already been decided")
	ErrNotRedemptionHandler = errors.New("only the offer's merchant can decide this redemption")
)

// EventPublisher 实时推送核销状态
type EventPublisher interface {
	PublishRedemption(ctx context.Context, msg *pubsub.RedemptionMessage) error
}

type RedemptionService struct {
	redemptionRepo *repository.RedemptionRepository
	offerRepo      *repository.OfferRepository
	userRepo       *repository.UserRepository
	notifier       *NotificationService
	publisher      EventPublisher
	points         int
	now            func() time.Time
}

func NewRedemptionService(
	redemptionRepo *repository.RedemptionRepository,
	offerRepo *repository.OfferRepository,
	userRepo *repository.UserRepository,
	notifier *NotificationService,
	publisher EventPublisher,
	cfg *config.Config,
) *RedemptionService {
	return &RedemptionService{
		redemptionRepo: redemptionRepo,
		offerRepo:      offerRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		publisher:      publisher,
		points:         cfg.Loyalty.PointsPerRedemption,
		now:            time.Now,
	}
}

// Request 顾客申请核销一条可展示的优惠
func (s *RedemptionService) Request(ctx context.Context, actor *model.Actor, offerID int64) (*dto.RedemptionInfo, error) {
	if !actor.IsCustomer() {
		return nil, ErrNotCustomer
	}

	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if !offer.IsActive || offer.Status != model.OfferStatusApproved || offer.ExpiryDate.Before(s.now()) {
		return nil, ErrOfferUnavailable
	}

	code, err := redemptionCode()
	if err != nil {
		return nil, err
	}

	redemption := &model.Redemption{
		OfferID:    offer.ID,
		CustomerID: actor.ID,
		MerchantID: offer.MerchantID,
		Code:       code,
		Status:     model.RedemptionStatusRequested,
	}
	if err := s.redemptionRepo.CreateIfNoPending(redemption); err != nil {
		if errors.Is(err, repository.ErrRedemptionPending) {
			return nil, ErrRedemptionPending
		}
		return nil, err
	}

	s.announce(ctx, redemption.ID, EventRedemptionRequested)
	redemption.Offer = offer
	return toRedemptionInfo(redemption), nil
}

// Approve 商家批准，顾客获得积分
func (s *RedemptionService) Approve(ctx context.Context, actor *model.Actor, id int64) (*dto.RedemptionInfo, error) {
	return s.decide(ctx, actor, id, model.RedemptionStatusApproved, EventRedemptionApproved)
}

// Reject 商家拒绝
func (s *RedemptionService) Reject(ctx context.Context, actor *model.Actor, id int64) (*dto.RedemptionInfo, error) {
	return s.decide(ctx, actor, id, model.RedemptionStatusRejected, EventRedemptionRejected)
}

func (s *RedemptionService) decide(ctx context.Context, actor *model.Actor, id int64, status string, kind EventKind) (*dto.RedemptionInfo, error) {
	redemption, err := s.redemptionRepo.GetByIDWithParties(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, err
	}
	if actor == nil || (redemption.MerchantID != actor.ID && !actor.IsAdmin()) {
		return nil, ErrNotRedemptionHandler
	}

	points := 0
	if status == model.RedemptionStatusApproved {
		points = s.points
	}
	decided, err := s.redemptionRepo.Decide(id, status, s.now(), points)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, ErrRedemptionDecided
	}

	s.announce(ctx, id, kind)

	updated, err := s.redemptionRepo.GetByIDWithParties(id)
	if err != nil {
		return nil, err
	}
	return toRedemptionInfo(updated), nil
}

// List 当前用户的核销记录，商家看到的是自己店铺收到的申请
func (s *RedemptionService) List(actor *model.Actor, page, pageSize int) ([]*dto.RedemptionInfo, int64, error) {
	rows, total, err := s.redemptionRepo.ListForUser(actor.ID, actor.IsMerchant(), page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.RedemptionInfo, 0, len(rows))
	for _, r := range rows {
		items = append(items, toRedemptionInfo(r))
	}
	return items, total, nil
}

// announce 发邮件并推送实时消息，失败只记录日志，不影响核销本身
func (s *RedemptionService) announce(ctx context.Context, id int64, kind EventKind) {
	r, err := s.redemptionRepo.GetByIDWithParties(id)
	if err != nil {
		log.Error().Err(err).Int64("redemption_id", id).Msg("load redemption for notification failed")
		return
	}

	if s.publisher != nil {
		msg := &pubsub.RedemptionMessage{
			Kind:         string(kind),
			RedemptionID: r.ID,
			OfferID:      r.OfferID,
			CustomerID:   r.CustomerID,
			MerchantID:   r.MerchantID,
			Status:       r.Status,
			Code:         r.Code,
		}
		if r.Offer != nil {
			msg.OfferTitle = r.Offer.Title
		}
		if err := s.publisher.PublishRedemption(ctx, msg); err != nil {
			log.Warn().Err(err).Int64("redemption_id", id).Msg("publish redemption event failed")
		}
	}

	if s.notifier == nil || r.Customer == nil || r.Merchant == nil || r.Offer == nil {
		return
	}
	evt := &RedemptionEvent{
		Kind:          kind,
		RedemptionID:  strconv.FormatInt(r.ID, 10),
		CustomerEmail: r.Customer.Email,
		MerchantEmail: r.Merchant.Email,
		CustomerName:  r.Customer.Name,
		MerchantName:  r.Merchant.Name,
		OfferTitle:    r.Offer.Title,
		StoreName:     ResolveStoreName(r.Merchant, r.Offer),
	}
	if _, err := s.notifier.DispatchRedemption(ctx, evt); err != nil {
		log.Warn().Err(err).Int64("redemption_id", id).Msg("redemption notification skipped")
	}
}

func toRedemptionInfo(r *model.Redemption) *dto.RedemptionInfo {
	info := &dto.RedemptionInfo{
		ID:         r.ID,
		OfferID:    r.OfferID,
		CustomerID: r.CustomerID,
		MerchantID: r.MerchantID,
		Code:       r.Code,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		DecidedAt:  r.DecidedAt,
	}
	if r.Offer != nil {
		info.OfferTitle = r.Offer.Title
	}
	return info
}

// redemptionCode 8 位大写十六进制核销码
func redemptionCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
