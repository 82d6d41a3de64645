package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/api/middleware"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/jwt"
	"github.com/qs3c/localdeals_server/internal/pkg/queue"
	"github.com/qs3c/localdeals_server/internal/pkg/razorpay"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/repository"
	"github.com/qs3c/localdeals_server/internal/service"
	"github.com/qs3c/localdeals_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

const testSecret = "test-secret-key"

type fakeSender struct {
	mu      sync.Mutex
	sent    []*email.Message
	failAll bool
}

func (f *fakeSender) Send(ctx context.Context, msg *email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errors.New("provider unavailable")
	}
	f.sent = append(f.sent, msg)
	return "re_" + msg.To[0], nil
}

// fakeGateway 记录调用次数的支付网关
type fakeGateway struct {
	planCalls int32
	subCalls  int32
	fail      bool
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreatePlan(ctx context.Context, req *razorpay.CreatePlanRequest) (*razorpay.Plan, error) {
	atomic.AddInt32(&g.planCalls, 1)
	return &razorpay.Plan{ID: "plan_1", Item: req.Item}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, req *razorpay.CreateSubscriptionRequest) (*razorpay.Subscription, error) {
	atomic.AddInt32(&g.subCalls, 1)
	if g.fail {
		return nil, &razorpay.APIError{Op: "create subscription", Description: "bad plan"}
	}
	return &razorpay.Subscription{ID: "sub_1", PlanID: req.PlanID, Status: "created"}, nil
}

type testEnv struct {
	db      *gorm.DB
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	cfg     *config.Config
	sender  *fakeSender
	gateway *fakeGateway
	queue   *queue.Queue

	users         *service.UserService
	quota         *service.QuotaService
	offers        *service.OfferService
	notifications *service.NotificationService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		testutil.CleanupTestDB(t, db)
	})

	cfg := &config.Config{
		Server:  config.ServerConfig{Timezone: "Asia/Kolkata"},
		JWT:     config.JWTConfig{Secret: testSecret, ExpireHours: 24},
		Email:   config.EmailConfig{AppURL: "https://app.localdeals.in"},
		Listing: config.ListingConfig{MaxRows: 50},
		Loyalty: config.LoyaltyConfig{PointsPerRedemption: 10},
		Payment: config.PaymentConfig{TotalCount: 12, RazorpayWebhookSecret: "whsec_test"},
	}

	env := &testEnv{
		db:      db,
		mr:      mr,
		rdb:     rdb,
		cfg:     cfg,
		sender:  &fakeSender{},
		gateway: &fakeGateway{},
		queue:   queue.NewQueue(rdb, "email_jobs"),
	}

	userRepo := repository.NewUserRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	env.users = service.NewUserService(userRepo, nil)
	env.quota = service.NewQuotaService(offerRepo, cfg)
	env.offers = service.NewOfferService(offerRepo, userRepo, env.quota, nil, nil, cfg)
	env.notifications = service.NewNotificationService(env.sender)
	return env
}

// router 与 api.Router 相同的路由，测试中直接组装
func (e *testEnv) router() *gin.Engine {
	userRepo := repository.NewUserRepository(e.db)
	authH := NewAuthHandler(service.NewAuthService(userRepo, e.rdb, e.queue, e.cfg))
	userH := NewUserHandler(e.users)
	quotaH := NewQuotaHandler(e.quota)
	offerH := NewOfferHandler(e.offers)
	adminH := NewAdminHandler(e.offers, e.users)
	redemptionH := NewRedemptionHandler(service.NewRedemptionService(
		repository.NewRedemptionRepository(e.db),
		repository.NewOfferRepository(e.db),
		userRepo,
		e.notifications,
		nil,
		e.cfg,
	))
	notificationH := NewNotificationHandler(e.notifications)
	subscriptionH := NewSubscriptionHandler(service.NewSubscriptionService(
		e.gateway, repository.NewSubscriptionRepository(e.db), userRepo, e.rdb, e.cfg))

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/password-reset", authH.RequestPasswordReset)
	api.POST("/auth/password-reset/confirm", authH.ConfirmPasswordReset)
	api.GET("/plans", subscriptionH.Plans)
	api.GET("/offers", middleware.OptionalAuth(testSecret, e.users), offerH.Listing)
	api.POST("/webhooks/razorpay", subscriptionH.Webhook)

	authed := api.Group("", middleware.Auth(testSecret, e.users))
	authed.GET("/user/profile", userH.GetProfile)
	authed.PUT("/user/profile", userH.UpdateProfile)
	authed.POST("/user/avatar", userH.UploadAvatar)
	authed.POST("/subscriptions", subscriptionH.Create)
	authed.GET("/subscriptions/current", subscriptionH.Current)
	authed.POST("/offers/:id/redeem", redemptionH.Redeem)
	authed.GET("/redemptions", redemptionH.List)
	authed.POST("/redemptions/:id/approve", redemptionH.Approve)
	authed.POST("/redemptions/:id/reject", redemptionH.Reject)
	emailLimiter := middleware.NewIPRateLimiter(e.cfg.RateLimit.EmailPerMinute, e.cfg.RateLimit.EmailBurst)
	authed.POST("/notifications/redemption-email", middleware.RateLimitByUser(emailLimiter), notificationH.RedemptionEmail)

	merchant := authed.Group("/merchant", middleware.RequireRole(model.RoleMerchant))
	merchant.GET("/quota", quotaH.GetQuota)
	merchant.POST("/offers", middleware.QuotaCheck(e.quota), offerH.Create)
	merchant.GET("/offers", offerH.ListMine)
	merchant.DELETE("/offers/:id", offerH.Delete)
	merchant.POST("/offers/:id/image", offerH.UploadImage)

	admin := authed.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/offers", adminH.ListOffers)
	admin.PUT("/offers/:id/status", adminH.UpdateOfferStatus)
	admin.GET("/users", adminH.ListUsers)
	admin.PUT("/users/:id/active", adminH.SetUserActive)
	return r
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(user.ID, user.Role, testSecret, 24)
	require.NoError(t, err)
	return token
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return performAuthRequest(r, method, path, body, "")
}

func performAuthRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case []byte:
		reqBody = bytes.NewBuffer(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 把 data 字段解到 out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, out))
}
