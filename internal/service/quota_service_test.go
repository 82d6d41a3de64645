package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/plan"
	"github.com/qs3c/localdeals_server/internal/repository"
	"github.com/qs3c/localdeals_server/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Timezone: "Asia/Kolkata"},
		JWT:     config.JWTConfig{Secret: "test-secret-key-for-testing", ExpireHours: 24},
		Email: config.EmailConfig{
			AppURL:               "https://app.localdeals.in",
			AllowedRedirectHosts: []string{"partners.localdeals.in"},
		},
		Listing: config.ListingConfig{MaxRows: 50},
		Loyalty: config.LoyaltyConfig{PointsPerRedemption: 10},
		Payment: config.PaymentConfig{TotalCount: 12, RazorpayWebhookSecret: "whsec_test"},
	}
}

func setupQuotaService(t *testing.T) (*QuotaService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	return NewQuotaService(repository.NewOfferRepository(db), testConfig()), db
}

func TestMonthRange(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 2026-02-28 20:00 UTC 是 IST 的 3 月 1 日凌晨
	start, end := MonthRange(time.Date(2026, 2, 28, 20, 0, 0, 0, time.UTC), ist)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, ist), start)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, ist), end)

	start, end = MonthRange(time.Date(2026, 12, 15, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 999999999, time.UTC), end)
}

func TestQuotaService_Evaluate_NoActor(t *testing.T) {
	svc, _ := setupQuotaService(t)

	info := svc.Evaluate(nil)
	assert.Equal(t, plan.Silver, info.Tier)
	assert.Equal(t, 2, info.MaxOffers)
	assert.Zero(t, info.UsedThisMonth)
	assert.False(t, info.CanCreate)
}

func TestQuotaService_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		tier      string
		existing  int
		maxOffers int
		remaining int64
		canCreate bool
	}{
		{"silver empty", plan.Silver, 0, 2, 2, true},
		{"silver one left", plan.Silver, 1, 2, 1, true},
		{"silver full", plan.Silver, 2, 2, 0, false},
		{"silver over", plan.Silver, 3, 2, 0, false},
		{"gold", plan.Gold, 4, 10, 6, true},
		{"platinum", plan.Platinum, 30, 30, 0, false},
		{"unknown tier", "Diamond", 1, 2, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupQuotaService(t)
			m := testutil.TestMerchant(t, db, testutil.WithTier(tt.tier))
			for i := 0; i < tt.existing; i++ {
				testutil.TestOffer(t, db, m.ID)
			}

			info := svc.Evaluate(m.Actor())
			assert.Equal(t, tt.maxOffers, info.MaxOffers)
			assert.Equal(t, int64(tt.existing), info.UsedThisMonth)
			assert.Equal(t, tt.remaining, info.Remaining)
			assert.Equal(t, tt.canCreate, info.CanCreate)
			assert.Empty(t, info.Error)
		})
	}
}

func TestQuotaService_Evaluate_IgnoresPreviousMonth(t *testing.T) {
	svc, db := setupQuotaService(t)
	m := testutil.TestMerchant(t, db)

	start, _ := svc.CurrentMonth()
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(start.Add(-time.Minute)))
	testutil.TestOffer(t, db, m.ID, testutil.WithCreatedAt(start))

	info := svc.Evaluate(m.Actor())
	assert.Equal(t, int64(1), info.UsedThisMonth)
	assert.True(t, info.CanCreate)
}

func TestQuotaService_Evaluate_StoreFailure(t *testing.T) {
	svc, db := setupQuotaService(t)
	m := testutil.TestMerchant(t, db)
	testutil.CleanupTestDB(t, db)

	info := svc.Evaluate(&model.Actor{ID: m.ID, Role: model.RoleMerchant, Tier: plan.Gold})
	assert.Zero(t, info.UsedThisMonth)
	assert.False(t, info.CanCreate)
	assert.NotEmpty(t, info.Error)
}
