package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/localdeals_server/internal/pkg/email"
	"github.com/qs3c/localdeals_server/internal/pkg/metrics"
)

// EventKind 核销生命周期事件
type EventKind string

const (
	EventRedemptionRequested EventKind = "redemption_requested"
	EventRedemptionApproved  EventKind = "redemption_approved"
	EventRedemptionRejected  EventKind = "redemption_rejected"
)

var (
	ErrInvalidEventKind    = errors.New("invalid redemption event type")
	ErrEmailNotConfigured  = errors.New("email delivery is not configured")
	ErrNotificationsFailed = errors.New("failed to deliver redemption emails")
)

type kindTemplates struct {
	customerTpl     string
	merchantTpl     string
	customerSubject string
	merchantSubject string
}

var redemptionTemplates = map[EventKind]kindTemplates{
	EventRedemptionRequested: {
		customerTpl:     email.TplRedemptionRequestedCustomer,
		merchantTpl:     email.TplRedemptionRequestedMerchant,
		customerSubject: "Redemption Requested: %s",
		merchantSubject: "New Redemption Request: %s",
	},
	EventRedemptionApproved: {
		customerTpl:     email.TplRedemptionApprovedCustomer,
		merchantTpl:     email.TplRedemptionApprovedMerchant,
		customerSubject: "Redemption Approved: %s",
		merchantSubject: "You approved a redemption: %s",
	},
	EventRedemptionRejected: {
		customerTpl:     email.TplRedemptionRejectedCustomer,
		merchantTpl:     email.TplRedemptionRejectedMerchant,
		customerSubject: "Redemption Not Approved: %s",
		merchantSubject: "You rejected a redemption: %s",
	},
}

// RedemptionEvent 一次通知所需的全部数据，不落库
type RedemptionEvent struct {
	Kind          EventKind
	RedemptionID  string
	CustomerEmail string
	MerchantEmail string
	CustomerName  string
	MerchantName  string
	OfferTitle    string
	StoreName     string
}

// RenderedEmails 顾客和商家各一封
type RenderedEmails struct {
	Customer *email.Message
	Merchant *email.Message
}

// DeliveryReport 两封邮件各自的投递结果
type DeliveryReport struct {
	CustomerID    string
	MerchantID    string
	CustomerError error
	MerchantError error
}

// Err 合并两侧的错误，全部成功时为 nil
func (r *DeliveryReport) Err() error {
	return multierr.Combine(r.CustomerError, r.MerchantError)
}

// AllFailed 两封都没有发出去
func (r *DeliveryReport) AllFailed() bool {
	return r.CustomerError != nil && r.MerchantError != nil
}

// RenderRedemption 按事件类型渲染两封邮件，未知类型直接报错
func RenderRedemption(evt *RedemptionEvent) (*RenderedEmails, error) {
	tpl, ok := redemptionTemplates[evt.Kind]
	if !ok {
		return nil, ErrInvalidEventKind
	}

	data := email.RedemptionData{
		RedemptionID: evt.RedemptionID,
		CustomerName: orDefault(evt.CustomerName, "there"),
		MerchantName: orDefault(evt.MerchantName, "there"),
		OfferTitle:   evt.OfferTitle,
		StoreName:    orDefault(evt.StoreName, DefaultStoreName),
	}

	customerHTML, err := email.Render(tpl.customerTpl, data)
	if err != nil {
		return nil, err
	}
	merchantHTML, err := email.Render(tpl.merchantTpl, data)
	if err != nil {
		return nil, err
	}

	return &RenderedEmails{
		Customer: &email.Message{
			To:       []string{evt.CustomerEmail},
			Subject:  fmt.Sprintf(tpl.customerSubject, evt.OfferTitle),
			HTML:     customerHTML,
			Template: tpl.customerTpl,
		},
		Merchant: &email.Message{
			To:       []string{evt.MerchantEmail},
			Subject:  fmt.Sprintf(tpl.merchantSubject, evt.OfferTitle),
			HTML:     merchantHTML,
			Template: tpl.merchantTpl,
		},
	}, nil
}

type NotificationService struct {
	sender email.Sender
}

// NewNotificationService sender 为 nil 时所有发送都返回 ErrEmailNotConfigured
func NewNotificationService(sender email.Sender) *NotificationService {
	return &NotificationService{sender: sender}
}

// DispatchRedemption 并发发送两封邮件，互不影响。
// 只有事件非法或邮件未配置时返回 error，投递失败记录在报告里。
func (s *NotificationService) DispatchRedemption(ctx context.Context, evt *RedemptionEvent) (*DeliveryReport, error) {
	rendered, err := RenderRedemption(evt)
	if err != nil {
		return nil, err
	}
	if s.sender == nil {
		return nil, ErrEmailNotConfigured
	}

	report := &DeliveryReport{}
	var g errgroup.Group
	g.Go(func() error {
		report.CustomerID, report.CustomerError = s.send(ctx, rendered.Customer)
		return nil
	})
	g.Go(func() error {
		report.MerchantID, report.MerchantError = s.send(ctx, rendered.Merchant)
		return nil
	})
	_ = g.Wait()

	if err := report.Err(); err != nil {
		log.Warn().Err(err).
			Str("redemption_id", evt.RedemptionID).
			Str("kind", string(evt.Kind)).
			Msg("redemption email delivery incomplete")
	}
	return report, nil
}

func (s *NotificationService) send(ctx context.Context, msg *email.Message) (string, error) {
	id, err := s.sender.Send(ctx, msg)
	metrics.EmailsSent.WithLabelValues(msg.Template, metrics.Result(err)).Inc()
	return id, err
}
