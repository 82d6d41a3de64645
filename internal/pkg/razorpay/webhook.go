package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/razorpay/razorpay-go/utils"
)

// SignatureHeader 网关在 webhook 请求中携带签名的头
const SignatureHeader = "X-Razorpay-Signature"

// webhook 事件类型
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionHalted    = "subscription.halted"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionCompleted = "subscription.completed"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event webhook 推送体中用得到的部分
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity Subscription `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// ComputeSignature hex(HMAC-SHA256(secret, body))，与网关的签名方式一致，供回放和测试签名
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature 交给 SDK 校验，空密钥或空签名直接拒绝
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !utils.VerifyWebhookSignature(string(body), signature, secret) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseEvent 校验签名后解析事件
func ParseEvent(body []byte, signature, secret string) (*Event, error) {
	if err := VerifyWebhookSignature(body, signature, secret); err != nil {
		return nil, err
	}
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
