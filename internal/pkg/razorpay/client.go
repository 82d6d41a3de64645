// Package razorpay 在官方 SDK 之上包一层强类型的计划、订阅接口，并校验 webhook 签名
package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/razorpay/razorpay-go"
)

// DefaultBaseURL SDK 自己拼接 /v1 前缀
const DefaultBaseURL = "https://api.razorpay.com"

var ErrNotConfigured = errors.New("razorpay credentials not configured")

// APIError 网关拒绝了请求，Description 为网关给出的说明
type APIError struct {
	Op          string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %s: %s", e.Op, e.Description)
}

type Client struct {
	keyID string
	sdk   *sdk.Client
}

// PlanItem 计划中的计费项，Amount 为最小货币单位
type PlanItem struct {
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

type CreatePlanRequest struct {
	Period   string            `json:"period"`
	Interval int               `json:"interval"`
	Item     PlanItem          `json:"item"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Plan struct {
	ID       string   `json:"id"`
	Entity   string   `json:"entity"`
	Interval int      `json:"interval"`
	Period   string   `json:"period"`
	Item     PlanItem `json:"item"`
}

type CreateSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type Subscription struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	PlanID     string            `json:"plan_id"`
	Status     string            `json:"status"`
	TotalCount int               `json:"total_count"`
	ShortURL   string            `json:"short_url"`
	CurrentEnd *int64            `json:"current_end"`
	Notes      map[string]string `json:"notes"`
}

func NewClient(keyID, keySecret, baseURL string) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrNotConfigured
	}
	c := sdk.NewClient(keyID, keySecret)
	// 兼容带 /v1 的旧配置
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	sdk.Request.BaseURL = baseURL
	return &Client{keyID: keyID, sdk: c}, nil
}

// KeyID 公开的 key id，前端 checkout 需要
func (c *Client) KeyID() string {
	return c.keyID
}

// CreatePlan SDK 不接收 context，只在发请求前检查是否已取消
func (c *Client) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := toMap(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.sdk.Plan.Create(data, nil)
	if err != nil {
		return nil, &APIError{Op: "create plan", Description: err.Error()}
	}
	var out Plan
	if err := fromMap(raw, &out); err != nil {
		return nil, fmt.Errorf("decode razorpay plan: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := toMap(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.sdk.Subscription.Create(data, nil)
	if err != nil {
		return nil, &APIError{Op: "create subscription", Description: err.Error()}
	}
	var out Subscription
	if err := fromMap(raw, &out); err != nil {
		return nil, fmt.Errorf("decode razorpay subscription: %w", err)
	}
	return &out, nil
}

// SDK 的入参和返回值都是 map，借 json tag 和强类型互转
func toMap(in interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]interface{}, out interface{}) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
