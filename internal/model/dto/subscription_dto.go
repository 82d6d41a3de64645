package dto

// CreateSubscriptionRequest 字段名和前端 checkout 保持一致
type CreateSubscriptionRequest struct {
	PlanName string `json:"planName" binding:"required"`
}

// SubscriptionResponse checkout 所需的订阅描述。
// Provisional 为 true 表示本地记录未写入成功，等待 webhook 补齐。
type SubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	Key            string `json:"key"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Name           string `json:"name"`
	Provisional    bool   `json:"provisional"`
}
