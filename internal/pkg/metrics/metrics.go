package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OffersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "localdeals_offers_created_total",
		Help: "Offers created by merchants.",
	})

	OffersRejectedByQuota = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "localdeals_offers_quota_denied_total",
		Help: "Offer creations denied because the monthly quota was used up.",
	})

	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "localdeals_emails_sent_total",
		Help: "Transactional emails by template and result.",
	}, []string{"template", "result"})

	SubscriptionsProvisioned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "localdeals_subscriptions_provisioned_total",
		Help: "Subscription provisioning attempts by plan and result.",
	}, []string{"plan", "result"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "localdeals_http_requests_total",
		Help: "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)

// Registry 进程级注册表，/metrics 从这里导出
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		OffersCreated,
		OffersRejectedByQuota,
		EmailsSent,
		SubscriptionsProvisioned,
		HTTPRequests,
		prometheus.NewGoCollector(),
	)
}

// Result 把 error 归一成 ok / error 标签
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
