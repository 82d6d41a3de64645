package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/metrics"
	"github.com/qs3c/localdeals_server/internal/pkg/queue"
)

const (
	defaultMaxAttempts = 3
	defaultPopTimeout  = 5 * time.Second
	defaultRetryDelay  = 10 * time.Second
	maxRetryDelay      = 5 * time.Minute
)

// ErrJobDropped 重试次数用尽后放弃的任务
var ErrJobDropped = errors.New("email job dropped after max attempts")

// JobQueue 邮件任务队列，由 queue.Queue 实现
type JobQueue interface {
	Push(ctx context.Context, job *queue.EmailJob) error
	Pop(ctx context.Context, timeout time.Duration) (*queue.EmailJob, error)
}

// Processor 邮件任务处理器
type Processor struct {
	sender      email.Sender
	queue       JobQueue
	maxAttempts int
	popTimeout  time.Duration
	retryDelay  time.Duration
}

// NewProcessor 创建任务处理器，maxAttempts、retryDelay <= 0 时使用默认值
func NewProcessor(sender email.Sender, q JobQueue, maxAttempts int, retryDelay time.Duration) *Processor {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Processor{
		sender:      sender,
		queue:       q,
		maxAttempts: maxAttempts,
		popTimeout:  defaultPopTimeout,
		retryDelay:  retryDelay,
	}
}

// backoff 第 n 次失败后的等待时间，按 2 的幂增长，不超过 maxRetryDelay
func (p *Processor) backoff(attempts int) time.Duration {
	d := p.retryDelay
	for i := 1; i < attempts && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// Process 发送一封邮件，失败时退避一段时间再重新入队，超过次数后丢弃
func (p *Processor) Process(ctx context.Context, job *queue.EmailJob) error {
	if p.sender == nil {
		return email.ErrNotConfigured
	}

	id, err := p.sender.Send(ctx, &email.Message{
		To:       job.To,
		Subject:  job.Subject,
		HTML:     job.HTML,
		Template: job.Template,
	})
	metrics.EmailsSent.WithLabelValues(job.Template, metrics.Result(err)).Inc()
	if err == nil {
		log.Info().
			Str("job_id", job.ID).
			Str("template", job.Template).
			Str("message_id", id).
			Dur("queued_for", time.Since(job.QueuedAt)).
			Msg("email sent")
		return nil
	}

	job.Attempts++
	if job.Attempts >= p.maxAttempts {
		log.Error().Err(err).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("email job dropped")
		return fmt.Errorf("%w: %v", ErrJobDropped, err)
	}

	delay := p.backoff(job.Attempts)
	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	// 退出时也要把任务放回队列
	if pushErr := p.queue.Push(context.WithoutCancel(ctx), job); pushErr != nil {
		return fmt.Errorf("requeue email job %s: %w", job.ID, pushErr)
	}
	log.Warn().Err(err).
		Str("job_id", job.ID).
		Int("attempts", job.Attempts).
		Dur("backoff", delay).
		Msg("email send failed, requeued")
	return err
}

// Run 循环取任务直到 ctx 取消
func (p *Processor) Run(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", workerID).Msg("worker shutting down")
			return
		default:
		}

		job, err := p.queue.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Int("worker", workerID).Msg("failed to pop job")
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		if err := p.Process(ctx, job); err != nil {
			log.Warn().Err(err).Int("worker", workerID).Str("job_id", job.ID).Msg("job failed")
		}
	}
}
