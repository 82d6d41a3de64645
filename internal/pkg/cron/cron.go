package cron

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SubscriptionSweeper 把过了当前计费周期的订阅标记为过期
type SubscriptionSweeper interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	sweeper  SubscriptionSweeper
	interval time.Duration
	stopChan chan struct{}
}

func NewService(sweeper SubscriptionSweeper, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runSubscriptionSweep()
	log.Info().Dur("interval", s.interval).Msg("cron service started")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Info().Msg("cron service stopped")
}

func (s *Service) runSubscriptionSweep() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RunNow(context.Background()); err != nil {
				log.Error().Err(err).Msg("subscription sweep failed")
			}
		}
	}
}

// RunNow 立即执行一次过期扫描（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) (int64, error) {
	n, err := s.sweeper.ExpireLapsed(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("expired", n).Msg("subscriptions expired")
	}
	return n, nil
}
