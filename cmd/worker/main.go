package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/database"
	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/logger"
	"github.com/qs3c/localdeals_server/internal/pkg/queue"
	"github.com/qs3c/localdeals_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log, os.Stdout)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()
	log.Info().Msg("redis connected")

	sender, err := email.NewSender(&cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("email sender not configured")
	}

	emailQueue := queue.NewQueue(rdb, cfg.Queue.EmailQueue)
	processor := worker.NewProcessor(sender, emailQueue, 0, cfg.Queue.RetryDelay)

	// 监听退出信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := cfg.Queue.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	log.Info().Int("workers", workers).Str("queue", cfg.Queue.EmailQueue).Msg("worker started")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processor.Run(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Info().Msg("worker shutdown complete")
}
