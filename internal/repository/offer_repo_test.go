package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/testutil"
)

func newOffer(merchantID int64) *model.Offer {
	return &model.Offer{
		MerchantID:     merchantID,
		Title:          "Masala Dosa 2 for 1",
		Category:       "food",
		ExpiryDate:     time.Now().UTC().Add(48 * time.Hour),
		RedemptionMode: model.RedemptionModeInStore,
		ListingType:    model.ListingTypeLocal,
		Status:         model.OfferStatusApplied,
		IsActive:       true,
	}
}

func TestOfferRepository_CountByMerchantBetween(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	other := testutil.TestMerchant(t, db)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC)

	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(start))
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(end))
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(start.Add(-time.Second)))
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(end.Add(time.Second)))
	testutil.TestOffer(t, db, other.ID, testutil.WithCreatedAt(start.Add(time.Hour)))

	count, err := repo.CountByMerchantBetween(m.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestOfferRepository_CountByMerchantBetween_OtherZone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)

	ist := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, ist)
	end := time.Date(2026, 3, 31, 23, 59, 59, 999999999, ist)

	// 2026-02-28 19:00 UTC 已经是 IST 的 3 月 1 日
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC)))
	// 2026-03-31 19:00 UTC 已经是 IST 的 4 月 1 日
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(time.Date(2026, 3, 31, 19, 0, 0, 0, time.UTC)))

	count, err := repo.CountByMerchantBetween(m.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestOfferRepository_CreateWithinQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	require.NoError(t, repo.CreateWithinQuota(newOffer(m.ID), start, end, 2))
	require.NoError(t, repo.CreateWithinQuota(newOffer(m.ID), start, end, 2))
	err := repo.CreateWithinQuota(newOffer(m.ID), start, end, 2)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	count, err := repo.CountByMerchantBetween(m.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var user model.User
	require.NoError(t, db.First(&user, m.ID).Error)
	assert.Equal(t, 2, user.OffersCreatedTotal, "rejected attempt is rolled back")
}

func TestOfferRepository_CreateWithinQuota_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, denied := 0, 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateWithinQuota(newOffer(m.ID), start, end, 2)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if err == ErrQuotaExceeded {
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 4, denied)
}

func TestOfferRepository_CreateWithinQuota_UnknownMerchant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	err := repo.CreateWithinQuota(newOffer(99999), time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 2)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestOfferRepository_ListActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	now := time.Now().UTC()

	older := testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(now.Add(-2*time.Hour)))
	newer := testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(now.Add(-time.Hour)))
	testutil.TestOffer(t, db, m.ID, testutil.WithExpiry(now.Add(-time.Minute)))
	testutil.TestOffer(t, db, m.ID, testutil.WithOfferStatus(model.OfferStatusInReview))
	testutil.TestOffer(t, db, m.ID, testutil.OfferInactive())

	offers, err := repo.ListActive(now, 50)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, newer.ID, offers[0].ID)
	assert.Equal(t, older.ID, offers[1].ID)

	limited, err := repo.ListActive(now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOfferRepository_TransitionStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	offer := testutil.TestOffer(t, db, m.ID, testutil.WithOfferStatus(model.OfferStatusApplied))

	ok, err := repo.TransitionStatus(offer.ID, []string{model.OfferStatusApplied}, model.OfferStatusInReview)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(offer.ID, []string{model.OfferStatusApplied}, model.OfferStatusApproved)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusInReview, found.Status)
}

func TestOfferRepository_ListAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	other := testutil.TestMerchant(t, db)
	mine := testutil.TestOffer(t, db, m.ID, testutil.WithOfferStatus(model.OfferStatusApplied))
	testutil.TestOffer(t, db, m.ID)
	theirs := testutil.TestOffer(t, db, other.ID)

	offers, total, err := repo.ListByMerchant(m.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, offers, 2)

	pending, total, err := repo.ListByStatus(model.OfferStatusApplied, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, mine.ID, pending[0].ID)

	ok, err := repo.DeleteByMerchant(theirs.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteByMerchant(mine.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.GetByID(mine.ID)
	assert.Error(t, err)
}

func TestOfferRepository_DeactivateExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOfferRepository(db)
	m := testutil.TestMerchant(t, db)
	now := time.Now().UTC()
	expired := testutil.TestOffer(t, db, m.ID, testutil.WithExpiry(now.Add(-time.Hour)))
	live := testutil.TestOffer(t, db, m.ID)
	testutil.TestOffer(t, db, m.ID, testutil.WithExpiry(now.Add(-time.Hour)), testutil.OfferInactive())

	count, err := repo.CountExpiredActive(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err := repo.DeactivateExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = repo.GetByID(live.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
