package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/repository"
	"github.com/qs3c/localdeals_server/internal/testutil"
)

type fakeImageStore struct {
	uploaded []int64
	deleted  []string
	err      error
}

func (f *fakeImageStore) UploadOfferImage(offerID int64, data []byte, ext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, offerID)
	return "https://cdn.localdeals.in/offers/img" + ext, nil
}

func (f *fakeImageStore) DeleteByURL(url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type offerFixture struct {
	svc    *OfferService
	db     *gorm.DB
	mr     *miniredis.Miniredis
	images *fakeImageStore
}

func setupOfferService(t *testing.T, withCache bool) *offerFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	var rdb *redis.Client
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		cfg.Listing.CacheTTL = time.Minute
	}

	offerRepo := repository.NewOfferRepository(db)
	images := &fakeImageStore{}
	svc := NewOfferService(offerRepo, repository.NewUserRepository(db), NewQuotaService(offerRepo, cfg), rdb, images, cfg)
	return &offerFixture{svc: svc, db: db, mr: mr, images: images}
}

func createReq() *dto.CreateOfferRequest {
	return &dto.CreateOfferRequest{
		Title:              "Weekend Thali",
		Category:           "Food",
		OriginalPrice:      decimal.RequireFromString("499.99"),
		DiscountPercentage: 15,
		ExpiryDate:         time.Now().Add(72 * time.Hour),
	}
}

func TestOfferService_Create(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)

	offer, err := f.svc.Create(context.Background(), m.Actor(), createReq())
	require.NoError(t, err)

	assert.Equal(t, model.OfferStatusApplied, offer.Status)
	assert.Equal(t, "food", offer.Category)
	assert.Equal(t, model.ListingTypeLocal, offer.ListingType)
	assert.Equal(t, model.RedemptionModeInStore, offer.RedemptionMode)
	assert.True(t, offer.DiscountedPrice.Equal(decimal.RequireFromString("424.99")), offer.DiscountedPrice.String())
}

func TestOfferService_Create_Rejections(t *testing.T) {
	f := setupOfferService(t, false)
	customer := testutil.TestUser(t, f.db)
	m := testutil.TestMerchant(t, f.db)

	_, err := f.svc.Create(context.Background(), customer.Actor(), createReq())
	assert.ErrorIs(t, err, ErrNotMerchant)

	_, err = f.svc.Create(context.Background(), nil, createReq())
	assert.ErrorIs(t, err, ErrNotMerchant)

	req := createReq()
	req.OriginalPrice = decimal.Zero
	_, err = f.svc.Create(context.Background(), m.Actor(), req)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestOfferService_Create_EnforcesQuota(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db, testutil.WithTier(plan.Silver))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Create(ctx, m.Actor(), createReq())
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, m.Actor(), createReq())
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	gold := m.Actor()
	gold.Tier = plan.Gold
	_, err = f.svc.Create(ctx, gold, createReq())
	assert.NoError(t, err)
}

func TestResolveStoreName(t *testing.T) {
	offer := &model.Offer{StoreName: "Offer Store"}

	assert.Equal(t, "Profile Store", ResolveStoreName(&model.User{StoreName: "Profile Store", Name: "Ravi"}, offer))
	assert.Equal(t, "Ravi", ResolveStoreName(&model.User{Name: "Ravi"}, offer))
	assert.Equal(t, "Offer Store", ResolveStoreName(&model.User{StoreName: "  "}, offer))
	assert.Equal(t, "Offer Store", ResolveStoreName(nil, offer))
	assert.Equal(t, DefaultStoreName, ResolveStoreName(nil, &model.Offer{}))
}

func TestSearchAndCategory(t *testing.T) {
	items := []*dto.OfferItem{
		{ID: 1, Title: "Pizza Night", Category: "food", Location: "Koregaon Park"},
		{ID: 2, Title: "Haircut", Description: "Includes a free HEAD massage", Category: "beauty"},
		{ID: 3, Title: "Yoga pass", Category: "fitness", Location: "Baner"},
	}

	ids := func(in []*dto.OfferItem) []int64 {
		out := []int64{}
		for _, it := range in {
			out = append(out, it.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3}, ids(Search(items, "")))
	assert.Equal(t, []int64{1}, ids(Search(items, "PIZZA")))
	assert.Equal(t, []int64{2}, ids(Search(items, "head mass")))
	assert.Equal(t, []int64{3}, ids(Search(items, "baner")))
	assert.Equal(t, []int64{3}, ids(Search(items, "Fitness")))
	assert.Empty(t, Search(items, "sushi"))

	assert.Equal(t, []int64{1, 2, 3}, ids(FilterByCategory(items, "all")))
	assert.Equal(t, []int64{1, 2, 3}, ids(FilterByCategory(items, "")))
	assert.Equal(t, []int64{2}, ids(FilterByCategory(items, "beauty")))
	assert.Equal(t, []int64{2}, ids(FilterByCategory(items, "Beauty")))
	assert.Equal(t, []int64{2}, ids(FilterByCategory(items, "  BEAUTY ")))
	assert.Equal(t, []int64{1, 2, 3}, ids(FilterByCategory(items, "All")))
	assert.Empty(t, FilterByCategory(items, "beau"))
}

func TestOfferService_Listing_CategoryCaseInsensitive(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)

	offer, err := f.svc.Create(context.Background(), m.Actor(), createReq())
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Offer{}).Where("id = ?", offer.ID).
		Update("status", model.OfferStatusApproved).Error)

	// 入库是 food，查询按商家填写时的 Food
	resp := f.svc.Listing(context.Background(), &dto.ListingQuery{Category: "Food"})
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, offer.ID, resp.Offers[0].ID)
}

func TestOfferService_Listing(t *testing.T) {
	f := setupOfferService(t, false)
	named := testutil.TestMerchant(t, f.db, testutil.WithStoreName("Chai Point"))
	plain := testutil.TestMerchant(t, f.db, testutil.WithName("Ravi"))
	now := time.Now().UTC()

	testutil.TestOffer(t, f.db, named.ID, testutil.WithListingType(model.ListingTypeHot), testutil.WithTitle("Hot chai"))
	testutil.TestOffer(t, f.db, plain.ID, testutil.WithListingType(model.ListingTypeTrending), testutil.WithCategory("beauty"))
	testutil.TestOffer(t, f.db, plain.ID, testutil.WithListingType(model.ListingTypeLocal))
	testutil.TestOffer(t, f.db, named.ID, testutil.WithExpiry(now.Add(-time.Hour)))
	testutil.TestOffer(t, f.db, named.ID, testutil.WithOfferStatus(model.OfferStatusRejected))
	testutil.TestOffer(t, f.db, named.ID, testutil.OfferInactive())

	resp := f.svc.Listing(context.Background(), &dto.ListingQuery{})
	assert.Empty(t, resp.Error)
	assert.Len(t, resp.Offers, 3)
	require.Len(t, resp.HotOffers, 1)
	assert.Len(t, resp.Trending, 1)
	assert.Len(t, resp.LocalDeals, 1)
	assert.Equal(t, "Chai Point", resp.HotOffers[0].StoreName)
	assert.Equal(t, "Ravi", resp.Trending[0].StoreName)

	byType := f.svc.Listing(context.Background(), &dto.ListingQuery{Type: model.ListingTypeHot})
	assert.Len(t, byType.Offers, 1)

	byCategory := f.svc.Listing(context.Background(), &dto.ListingQuery{Category: "beauty"})
	assert.Len(t, byCategory.Offers, 1)
	assert.Empty(t, byCategory.HotOffers)
}

func TestOfferService_Listing_CapsRows(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)
	for i := 0; i < 55; i++ {
		testutil.TestOffer(t, f.db, m.ID)
	}

	resp := f.svc.Listing(context.Background(), &dto.ListingQuery{})
	assert.Len(t, resp.Offers, 50)
}

func TestOfferService_Listing_StoreFailure(t *testing.T) {
	f := setupOfferService(t, false)
	testutil.CleanupTestDB(t, f.db)

	resp := f.svc.Listing(context.Background(), &dto.ListingQuery{})
	assert.NotEmpty(t, resp.Error)
	assert.NotNil(t, resp.Offers)
	assert.Empty(t, resp.Offers)
	assert.Empty(t, resp.HotOffers)
}

func TestOfferService_Listing_CacheRechecksExpiry(t *testing.T) {
	f := setupOfferService(t, true)
	m := testutil.TestMerchant(t, f.db)
	now := time.Now().UTC()

	testutil.TestOffer(t, f.db, m.ID, testutil.WithExpiry(now.Add(time.Hour)))
	testutil.TestOffer(t, f.db, m.ID, testutil.WithExpiry(now.Add(48*time.Hour)))

	first := f.svc.Listing(context.Background(), &dto.ListingQuery{})
	require.Len(t, first.Offers, 2)
	assert.True(t, f.mr.Exists(listingCacheKey))

	// 缓存仍然有效，但其中一条已经过期
	f.svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	second := f.svc.Listing(context.Background(), &dto.ListingQuery{})
	assert.Len(t, second.Offers, 1)
}

func TestOfferService_Create_InvalidatesCache(t *testing.T) {
	f := setupOfferService(t, true)
	m := testutil.TestMerchant(t, f.db)

	f.svc.Listing(context.Background(), &dto.ListingQuery{})
	require.True(t, f.mr.Exists(listingCacheKey))

	_, err := f.svc.Create(context.Background(), m.Actor(), createReq())
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(listingCacheKey))
}

func TestOfferService_Moderate(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)
	ctx := context.Background()

	applied := testutil.TestOffer(t, f.db, m.ID, testutil.WithOfferStatus(model.OfferStatusApplied))

	offer, err := f.svc.Moderate(ctx, applied.ID, model.OfferStatusInReview)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusInReview, offer.Status)

	_, err = f.svc.Moderate(ctx, applied.ID, model.OfferStatusInReview)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	offer, err = f.svc.Moderate(ctx, applied.ID, model.OfferStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusApproved, offer.Status)

	_, err = f.svc.Moderate(ctx, applied.ID, model.OfferStatusRejected)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	direct := testutil.TestOffer(t, f.db, m.ID, testutil.WithOfferStatus(model.OfferStatusApplied))
	offer, err = f.svc.Moderate(ctx, direct.ID, model.OfferStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusRejected, offer.Status)

	_, err = f.svc.Moderate(ctx, direct.ID, model.OfferStatusApplied)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Moderate(ctx, 99999, model.OfferStatusApproved)
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestOfferService_DeleteAndImage(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)
	other := testutil.TestMerchant(t, f.db)
	ctx := context.Background()

	offer := testutil.TestOffer(t, f.db, m.ID)

	_, err := f.svc.UploadImage(ctx, other.Actor(), offer.ID, []byte("img"), ".png")
	assert.ErrorIs(t, err, ErrOfferNotFound)

	url, err := f.svc.UploadImage(ctx, m.Actor(), offer.ID, []byte("img"), ".png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.localdeals.in/offers/img.png", url)

	_, err = f.svc.UploadImage(ctx, m.Actor(), offer.ID, make([]byte, maxImageSize+1), ".png")
	assert.ErrorIs(t, err, ErrImageTooLarge)

	assert.ErrorIs(t, f.svc.Delete(ctx, other.Actor(), offer.ID), ErrOfferNotFound)
	require.NoError(t, f.svc.Delete(ctx, m.Actor(), offer.ID))
	assert.Equal(t, []string{url}, f.images.deleted)
	assert.ErrorIs(t, f.svc.Delete(ctx, m.Actor(), offer.ID), ErrOfferNotFound)
}

func TestOfferService_UploadImage_StoreError(t *testing.T) {
	f := setupOfferService(t, false)
	m := testutil.TestMerchant(t, f.db)
	offer := testutil.TestOffer(t, f.db, m.ID)
	f.images.err = errors.New("oss down")

	_, err := f.svc.UploadImage(context.Background(), m.Actor(), offer.ID, []byte("img"), ".jpg")
	assert.Error(t, err)
}
