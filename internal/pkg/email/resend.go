package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendClient 通过官方 SDK 调用 Resend 发送邮件
type ResendClient struct {
	client *resend.Client
	from   string
}

// ResendError 服务商拒绝了发送
type ResendError struct {
	Message string
}

func (e *ResendError) Error() string {
	return "resend: " + e.Message
}

// NewResendClient baseURL 为空或无法解析时使用官方地址
func NewResendClient(apiKey, baseURL, from string) *ResendClient {
	c := resend.NewClient(apiKey)
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	// SDK 按相对路径拼接，基地址必须以 / 结尾
	if u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/"); err == nil && u.Host != "" {
		c.BaseURL = u
	}
	return &ResendClient{client: c, from: from}
}

func (c *ResendClient) Send(ctx context.Context, msg *Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	sent, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("resend request: %w", ctx.Err())
		}
		return "", &ResendError{Message: err.Error()}
	}
	return sent.Id, nil
}
