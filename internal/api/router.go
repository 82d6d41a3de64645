package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/api/handler"
	"github.com/qs3c/localdeals_server/internal/api/middleware"
	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/metrics"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	quotaHandler        *handler.QuotaHandler
	offerHandler        *handler.OfferHandler
	adminHandler        *handler.AdminHandler
	redemptionHandler   *handler.RedemptionHandler
	notificationHandler *handler.NotificationHandler
	subscriptionHandler *handler.SubscriptionHandler
	websocketHandler    *handler.WebSocketHandler
	actors              middleware.ActorLoader
	quota               middleware.QuotaEvaluator
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	quotaHandler *handler.QuotaHandler,
	offerHandler *handler.OfferHandler,
	adminHandler *handler.AdminHandler,
	redemptionHandler *handler.RedemptionHandler,
	notificationHandler *handler.NotificationHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	websocketHandler *handler.WebSocketHandler,
	actors middleware.ActorLoader,
	quota middleware.QuotaEvaluator,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		quotaHandler:        quotaHandler,
		offerHandler:        offerHandler,
		adminHandler:        adminHandler,
		redemptionHandler:   redemptionHandler,
		notificationHandler: notificationHandler,
		subscriptionHandler: subscriptionHandler,
		websocketHandler:    websocketHandler,
		actors:              actors,
		quota:               quota,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() (*gin.Engine, error) {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	secret := r.cfg.JWT.Secret
	authLimiter := middleware.NewIPRateLimiter(r.cfg.RateLimit.AuthPerMinute, r.cfg.RateLimit.AuthBurst)
	emailLimiter := middleware.NewIPRateLimiter(r.cfg.RateLimit.EmailPerMinute, r.cfg.RateLimit.EmailBurst)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证（限流）
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(authLimiter))
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/password-reset", r.authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", r.authHandler.ConfirmPasswordReset)
		}

		// 公开接口 - 套餐、优惠列表、支付回调
		api.GET("/plans", r.subscriptionHandler.Plans)
		api.GET("/offers", middleware.OptionalAuth(secret, r.actors), r.offerHandler.Listing)
		api.POST("/webhooks/razorpay", r.subscriptionHandler.Webhook)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(secret, r.actors))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
			}

			// 订阅
			authenticated.POST("/subscriptions", r.subscriptionHandler.Create)
			authenticated.GET("/subscriptions/current", r.subscriptionHandler.Current)

			// 核销
			authenticated.POST("/offers/:id/redeem", r.redemptionHandler.Redeem)
			authenticated.GET("/redemptions", r.redemptionHandler.List)
			authenticated.POST("/redemptions/:id/approve", r.redemptionHandler.Approve)
			authenticated.POST("/redemptions/:id/reject", r.redemptionHandler.Reject)

			// 核销通知邮件（按用户限流）
			authenticated.POST("/notifications/redemption-email",
				middleware.RateLimitByUser(emailLimiter), r.notificationHandler.RedemptionEmail)

			// 商家
			merchant := authenticated.Group("/merchant")
			merchant.Use(middleware.RequireRole(model.RoleMerchant))
			{
				merchant.GET("/quota", r.quotaHandler.GetQuota)
				merchant.POST("/offers", middleware.QuotaCheck(r.quota), r.offerHandler.Create)
				merchant.GET("/offers", r.offerHandler.ListMine)
				merchant.DELETE("/offers/:id", r.offerHandler.Delete)
				merchant.POST("/offers/:id/image", r.offerHandler.UploadImage)
			}

			// 后台
			admin := authenticated.Group("/admin")
			admin.Use(middleware.RequireRole(model.RoleAdmin))
			{
				admin.GET("/offers", r.adminHandler.ListOffers)
				admin.PUT("/offers/:id/status", r.adminHandler.UpdateOfferStatus)
				admin.GET("/users", r.adminHandler.ListUsers)
				admin.PUT("/users/:id/active", r.adminHandler.SetUserActive)
			}
		}
	}

	return engine, nil
}
