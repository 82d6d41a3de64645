package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qs3c/localdeals_server/config"
)

var ErrNotConfigured = errors.New("email provider not configured")

// Message 一封待发送的 HTML 邮件
type Message struct {
	To      []string
	Subject string
	HTML    string
	// Template 仅用于日志和指标
	Template string
}

// Sender 发送邮件并返回服务商分配的消息 ID
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// NewSender 根据配置选择发送通道
func NewSender(cfg *config.EmailConfig) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "resend":
		if cfg.ResendAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewResendClient(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.From), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, ErrNotConfigured
		}
		return NewSMTPSender(cfg), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func validate(msg *Message) error {
	if msg == nil || len(msg.To) == 0 {
		return errors.New("email: missing recipient")
	}
	for _, to := range msg.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("email: empty recipient")
		}
	}
	if msg.Subject == "" {
		return errors.New("email: missing subject")
	}
	return nil
}
