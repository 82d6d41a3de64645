package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/api"
	"github.com/qs3c/localdeals_server/internal/api/handler"
	"github.com/qs3c/localdeals_server/internal/database"
	"github.com/qs3c/localdeals_server/internal/pkg/cron"
	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/logger"
	"github.com/qs3c/localdeals_server/internal/pkg/oss"
	"github.com/qs3c/localdeals_server/internal/pkg/pubsub"
	"github.com/qs3c/localdeals_server/internal/pkg/queue"
	"github.com/qs3c/localdeals_server/internal/pkg/razorpay"
	"github.com/qs3c/localdeals_server/internal/pkg/ws"
	"github.com/qs3c/localdeals_server/internal/repository"
	"github.com/qs3c/localdeals_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log, os.Stdout)
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("redis connected")

	// 可选依赖：未配置时以 nil 接口传入，对应功能返回配置错误
	var (
		images  service.ImageStore
		avatars service.AvatarStore
		gateway service.Gateway
		sender  email.Sender
	)

	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Warn().Err(err).Msg("failed to init OSS client, uploads disabled")
		} else {
			images, avatars = ossClient, ossClient
			log.Info().Msg("OSS client initialized")
		}
	}

	if rzp, err := razorpay.NewClient(cfg.Payment.RazorpayKeyID, cfg.Payment.RazorpayKeySecret, cfg.Payment.RazorpayBaseURL); err != nil {
		log.Warn().Err(err).Msg("payment gateway not configured")
	} else {
		gateway = rzp
	}

	if s, err := email.NewSender(&cfg.Email); err != nil {
		log.Warn().Err(err).Msg("email sender not configured")
	} else {
		sender = s
	}

	emailQueue := queue.NewQueue(rdb, cfg.Queue.EmailQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)
	wsHub := ws.NewHub()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, rdb, emailQueue, cfg)
	userService := service.NewUserService(userRepo, avatars)
	quotaService := service.NewQuotaService(offerRepo, cfg)
	offerService := service.NewOfferService(offerRepo, userRepo, quotaService, rdb, images, cfg)
	notificationService := service.NewNotificationService(sender)
	redemptionService := service.NewRedemptionService(redemptionRepo, offerRepo, userRepo, notificationService, publisher, cfg)
	subscriptionService := service.NewSubscriptionService(gateway, subscriptionRepo, userRepo, rdb, cfg)

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewQuotaHandler(quotaService),
		handler.NewOfferHandler(offerService),
		handler.NewAdminHandler(offerService, userService),
		handler.NewRedemptionHandler(redemptionService),
		handler.NewNotificationHandler(notificationService),
		handler.NewSubscriptionHandler(subscriptionService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, userService),
		userService,
		quotaService,
		cfg,
	)
	engine, err := router.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup router")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := cron.NewService(subscriptionService, time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// 把 Redis 上的核销事件转发给在线的 WebSocket 连接
	g.Go(func() error {
		err := subscriber.Subscribe(gctx, wsHub.DeliverRedemption)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	_ = rdb.Close()
	log.Info().Msg("server shutdown complete")
}
