package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"github.com/qs3c/localdeals_server/config"
)

// SMTPSender 本地开发或自建邮件服务时使用
type SMTPSender struct {
	cfg *config.EmailConfig
}

func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	raw := s.build(id, msg)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, s.cfg.From, msg.To, raw); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}

// build 拼装 MIME 报文，头部顺序固定
func (s *SMTPSender) build(id string, msg *Message) []byte {
	domain := "localdeals"
	if at := strings.LastIndex(s.cfg.From, "@"); at >= 0 {
		domain = strings.Trim(s.cfg.From[at+1:], "> ")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", id, domain))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
