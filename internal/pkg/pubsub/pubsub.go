package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelRedemptionEvents = "redemption_events"
)

// RedemptionMessage 推送给核销双方的实时消息
type RedemptionMessage struct {
	Type         string `json:"type"`
	Kind         string `json:"kind"`
	RedemptionID int64  `json:"redemption_id"`
	OfferID      int64  `json:"offer_id"`
	OfferTitle   string `json:"offer_title"`
	CustomerID   int64  `json:"customer_id"`
	MerchantID   int64  `json:"merchant_id"`
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
}

// Recipients 需要收到该消息的用户
func (m *RedemptionMessage) Recipients() []int64 {
	if m.CustomerID == m.MerchantID {
		return []int64{m.CustomerID}
	}
	return []int64{m.CustomerID, m.MerchantID}
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishRedemption 发布核销状态变化
func (p *Publisher) PublishRedemption(ctx context.Context, msg *RedemptionMessage) error {
	msg.Type = "redemption"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal redemption message: %w", err)
	}

	return p.client.Publish(ctx, ChannelRedemptionEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅核销消息，ctx 取消时返回
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*RedemptionMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelRedemptionEvents)
	defer pubsub.Close()

	// 等订阅确认后再开始消费，避免丢掉紧随其后的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelRedemptionEvents, err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event RedemptionMessage
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
