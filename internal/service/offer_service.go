package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/metrics"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var (
	ErrNotMerchant         = errors.New("only merchants can manage offers")
	ErrOfferNotFound       = errors.New("offer not found")
	ErrInvalidPrice        = errors.New("original price must be greater than zero")
	ErrInvalidTransition   = errors.New("offer status cannot change this way")
	ErrQuotaExceeded       = errors.New("monthly offer limit reached for your plan")
	ErrImageTooLarge       = errors.New("image exceeds 5MB")
	ErrUnsupportedImage    = errors.New("only jpg, png and webp images are supported")
	ErrStorageNotAvailable = errors.New("file storage is not configured")
)

const (
	// DefaultStoreName 商家资料和优惠上都没有名字时的展示名
	DefaultStoreName = "Local Merchant"
	// CategoryAll 不按分类过滤
	CategoryAll = "all"

	listingCacheKey = "offers:active"
	maxListingRows  = 50
	maxImageSize    = 5 << 20
)

// 审核允许的状态迁移
var offerTransitions = map[string][]string{
	model.OfferStatusInReview: {model.OfferStatusApplied},
	model.OfferStatusApproved: {model.OfferStatusApplied, model.OfferStatusInReview},
	model.OfferStatusRejected: {model.OfferStatusApplied, model.OfferStatusInReview},
}

// ImageStore 优惠图片存储，由 OSS 客户端实现
type ImageStore interface {
	UploadOfferImage(offerID int64, data []byte, ext string) (string, error)
	DeleteByURL(url string) error
}

type OfferService struct {
	offerRepo *repository.OfferRepository
	userRepo  *repository.UserRepository
	quota     *QuotaService
	rdb       *redis.Client
	images    ImageStore
	maxRows   int
	cacheTTL  time.Duration
	now       func() time.Time
}

func NewOfferService(
	offerRepo *repository.OfferRepository,
	userRepo *repository.UserRepository,
	quota *QuotaService,
	rdb *redis.Client,
	images ImageStore,
	cfg *config.Config,
) *OfferService {
	maxRows := cfg.Listing.MaxRows
	if maxRows <= 0 || maxRows > maxListingRows {
		maxRows = maxListingRows
	}
	return &OfferService{
		offerRepo: offerRepo,
		userRepo:  userRepo,
		quota:     quota,
		rdb:       rdb,
		images:    images,
		maxRows:   maxRows,
		cacheTTL:  cfg.Listing.CacheTTL,
		now:       time.Now,
	}
}

// Create 发布优惠。折后价由服务端计算，配额在事务内强制检查。
func (s *OfferService) Create(ctx context.Context, actor *model.Actor, req *dto.CreateOfferRequest) (*model.Offer, error) {
	if !actor.IsMerchant() {
		return nil, ErrNotMerchant
	}
	if !req.OriginalPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}

	offer := &model.Offer{
		MerchantID:         actor.ID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Category:           strings.ToLower(strings.TrimSpace(req.Category)),
		District:           req.District,
		City:               req.City,
		Location:           req.Location,
		StoreName:          req.StoreName,
		OriginalPrice:      req.OriginalPrice.Round(2),
		DiscountPercentage: req.DiscountPercentage,
		DiscountedPrice:    model.DiscountedPriceFor(req.OriginalPrice, req.DiscountPercentage),
		ExpiryDate:         req.ExpiryDate.UTC(),
		RedemptionMode:     orDefault(req.RedemptionMode, model.RedemptionModeInStore),
		ListingType:        orDefault(req.ListingType, model.ListingTypeLocal),
		Status:             model.OfferStatusApplied,
		IsActive:           true,
	}

	start, end := s.quota.CurrentMonth()
	err := s.offerRepo.CreateWithinQuota(offer, start, end, s.quota.Limit(actor))
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			metrics.OffersRejectedByQuota.Inc()
			return nil, ErrQuotaExceeded
		}
		return nil, err
	}

	metrics.OffersCreated.Inc()
	log.Info().Int64("user_id", actor.ID).Int64("offer_id", offer.ID).Msg("offer created")
	s.invalidate(ctx)
	return offer, nil
}

// ListMine 商家自己的优惠（包含未审核、已过期的）
func (s *OfferService) ListMine(actor *model.Actor, page, pageSize int) ([]*model.Offer, int64, error) {
	if !actor.IsMerchant() {
		return nil, 0, ErrNotMerchant
	}
	return s.offerRepo.ListByMerchant(actor.ID, page, pageSize)
}

// Delete 商家删除自己的优惠
func (s *OfferService) Delete(ctx context.Context, actor *model.Actor, offerID int64) error {
	if !actor.IsMerchant() {
		return ErrNotMerchant
	}
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotFound
		}
		return err
	}

	ok, err := s.offerRepo.DeleteByMerchant(offerID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}

	if offer.ImageURL != "" && s.images != nil {
		if err := s.images.DeleteByURL(offer.ImageURL); err != nil {
			log.Warn().Err(err).Int64("offer_id", offerID).Msg("delete offer image failed")
		}
	}
	s.invalidate(ctx)
	return nil
}

// UploadImage 上传优惠封面，替换旧图
func (s *OfferService) UploadImage(ctx context.Context, actor *model.Actor, offerID int64, data []byte, ext string) (string, error) {
	if !actor.IsMerchant() {
		return "", ErrNotMerchant
	}
	if s.images == nil {
		return "", ErrStorageNotAvailable
	}
	if len(data) > maxImageSize {
		return "", ErrImageTooLarge
	}

	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOfferNotFound
		}
		return "", err
	}
	if offer.MerchantID != actor.ID {
		return "", ErrOfferNotFound
	}

	url, err := s.images.UploadOfferImage(offerID, data, ext)
	if err != nil {
		return "", err
	}
	if err := s.offerRepo.UpdateImage(offerID, url); err != nil {
		return "", err
	}

	if offer.ImageURL != "" {
		if err := s.images.DeleteByURL(offer.ImageURL); err != nil {
			log.Warn().Err(err).Int64("offer_id", offerID).Msg("delete old offer image failed")
		}
	}
	s.invalidate(ctx)
	return url, nil
}

// Moderate 后台审核：applied → in_review → approved/rejected，也允许 applied 直接终审
func (s *OfferService) Moderate(ctx context.Context, offerID int64, status string) (*model.Offer, error) {
	from, ok := offerTransitions[status]
	if !ok {
		return nil, ErrInvalidTransition
	}

	if _, err := s.offerRepo.GetByID(offerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}

	changed, err := s.offerRepo.TransitionStatus(offerID, from, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrInvalidTransition
	}

	s.invalidate(ctx)
	return s.offerRepo.GetByID(offerID)
}

// ListForModeration 审核队列
func (s *OfferService) ListForModeration(status string, page, pageSize int) ([]*model.Offer, int64, error) {
	return s.offerRepo.ListByStatus(status, page, pageSize)
}

// Listing 公开列表。任何读取失败都返回空集合和错误信息，不返回 error。
func (s *OfferService) Listing(ctx context.Context, q *dto.ListingQuery) *dto.ListingResponse {
	items, err := s.activeOffers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load offer listing failed")
		return &dto.ListingResponse{
			Offers:     []*dto.OfferItem{},
			HotOffers:  []*dto.OfferItem{},
			Trending:   []*dto.OfferItem{},
			LocalDeals: []*dto.OfferItem{},
			Error:      "failed to load offers",
		}
	}

	filtered := FilterByCategory(items, q.Category)
	filtered = Search(filtered, q.Q)

	resp := &dto.ListingResponse{
		Offers:     filterByType(filtered, q.Type),
		HotOffers:  filterByType(filtered, model.ListingTypeHot),
		Trending:   filterByType(filtered, model.ListingTypeTrending),
		LocalDeals: filterByType(filtered, model.ListingTypeLocal),
	}
	return resp
}

// activeOffers 当前可展示的优惠及解析后的店铺名，先读缓存，读出后再按过期时间过滤一次
func (s *OfferService) activeOffers(ctx context.Context) ([]*dto.OfferItem, error) {
	now := s.now()

	if cached, ok := s.readCache(ctx); ok {
		return notExpired(cached, now), nil
	}

	offers, err := s.offerRepo.ListActive(now, s.maxRows)
	if err != nil {
		return nil, err
	}

	merchantIDs := make([]int64, 0, len(offers))
	seen := make(map[int64]struct{}, len(offers))
	for _, o := range offers {
		if _, ok := seen[o.MerchantID]; ok {
			continue
		}
		seen[o.MerchantID] = struct{}{}
		merchantIDs = append(merchantIDs, o.MerchantID)
	}

	profiles, err := s.userRepo.GetByIDs(merchantIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.OfferItem, 0, len(offers))
	for _, o := range offers {
		items = append(items, toOfferItem(o, ResolveStoreName(profiles[o.MerchantID], o)))
	}

	s.writeCache(ctx, items)
	return items, nil
}

func (s *OfferService) readCache(ctx context.Context) ([]*dto.OfferItem, bool) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, listingCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("read listing cache failed")
		}
		return nil, false
	}
	var items []*dto.OfferItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *OfferService) writeCache(ctx context.Context, items []*dto.OfferItem) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, listingCacheKey, data, s.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("write listing cache failed")
	}
}

func (s *OfferService) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, listingCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("invalidate listing cache failed")
	}
}

// ResolveStoreName 店铺展示名：资料店铺名 > 资料姓名 > 优惠上的店铺名 > 默认名
func ResolveStoreName(profile *model.User, offer *model.Offer) string {
	if profile != nil {
		if name := strings.TrimSpace(profile.StoreName); name != "" {
			return name
		}
		if name := strings.TrimSpace(profile.Name); name != "" {
			return name
		}
	}
	if offer != nil {
		if name := strings.TrimSpace(offer.StoreName); name != "" {
			return name
		}
	}
	return DefaultStoreName
}

// FilterByCategory 分类整体匹配，不区分大小写；空或 all 不过滤。
// 分类入库时已统一小写，查询参数按同样规则归一
func FilterByCategory(items []*dto.OfferItem, category string) []*dto.OfferItem {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || category == CategoryAll {
		return items
	}
	out := make([]*dto.OfferItem, 0, len(items))
	for _, it := range items {
		if strings.EqualFold(it.Category, category) {
			out = append(out, it)
		}
	}
	return out
}

// Search 标题、描述、地点、分类任一包含关键词即命中，不区分大小写
func Search(items []*dto.OfferItem, term string) []*dto.OfferItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]*dto.OfferItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), term) ||
			strings.Contains(strings.ToLower(it.Description), term) ||
			strings.Contains(strings.ToLower(it.Location), term) ||
			strings.Contains(strings.ToLower(it.Category), term) {
			out = append(out, it)
		}
	}
	return out
}

func filterByType(items []*dto.OfferItem, listingType string) []*dto.OfferItem {
	out := make([]*dto.OfferItem, 0, len(items))
	for _, it := range items {
		if listingType == "" || it.ListingType == listingType {
			out = append(out, it)
		}
	}
	return out
}

func notExpired(items []*dto.OfferItem, now time.Time) []*dto.OfferItem {
	out := make([]*dto.OfferItem, 0, len(items))
	for _, it := range items {
		if !it.ExpiryDate.Before(now) {
			out = append(out, it)
		}
	}
	return out
}

func toOfferItem(o *model.Offer, storeName string) *dto.OfferItem {
	return &dto.OfferItem{
		ID:                 o.ID,
		MerchantID:         o.MerchantID,
		Title:              o.Title,
		Description:        o.Description,
		Category:           o.Category,
		District:           o.District,
		City:               o.City,
		Location:           o.Location,
		StoreName:          storeName,
		ImageURL:           o.ImageURL,
		OriginalPrice:      o.OriginalPrice,
		DiscountPercentage: o.DiscountPercentage,
		DiscountedPrice:    o.DiscountedPrice,
		ExpiryDate:         o.ExpiryDate,
		RedemptionMode:     o.RedemptionMode,
		ListingType:        o.ListingType,
		Status:             o.Status,
		IsActive:           o.IsActive,
		CreatedAt:          o.CreatedAt,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
