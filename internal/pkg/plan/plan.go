// Package plan 套餐目录：商家订阅等级与每月可发布优惠数量的静态映射
package plan

// 套餐名称
const (
	Silver   = "Silver"
	Gold     = "Gold"
	Platinum = "Platinum"
)

// Entry 入门套餐，未知或为空的套餐名都按它处理
const Entry = Silver

type Plan struct {
	Name       string `json:"name"`
	MaxOffers  int    `json:"max_offers"`
	PriceLabel string `json:"price_label"`
}

// Billing 付费套餐在支付网关侧的计费参数，金额以最小货币单位（paise）计
type Billing struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Period      string `json:"period"`
	Interval    int    `json:"interval"`
	DisplayName string `json:"display_name"`
}

var order = []string{Silver, Gold, Platinum}

var catalog = map[string]Plan{
	Silver:   {Name: Silver, MaxOffers: 2, PriceLabel: "Free"},
	Gold:     {Name: Gold, MaxOffers: 10, PriceLabel: "₹500/month"},
	Platinum: {Name: Platinum, MaxOffers: 30, PriceLabel: "₹1500/month"},
}

var billing = map[string]Billing{
	Gold:     {Amount: 50000, Currency: "INR", Period: "monthly", Interval: 1, DisplayName: "Gold Plan"},
	Platinum: {Amount: 150000, Currency: "INR", Period: "monthly", Interval: 1, DisplayName: "Platinum Plan"},
}

// For 根据套餐名返回套餐，不会失败
func For(name string) Plan {
	if p, ok := catalog[name]; ok {
		return p
	}
	return catalog[Entry]
}

// Known 套餐名是否存在于目录中
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// BillingFor 返回付费套餐的计费参数，入门套餐不可购买
func BillingFor(name string) (Billing, bool) {
	b, ok := billing[name]
	return b, ok
}

// All 按等级从低到高返回全部套餐
func All() []Plan {
	plans := make([]Plan, 0, len(order))
	for _, name := range order {
		plans = append(plans, catalog[name])
	}
	return plans
}
