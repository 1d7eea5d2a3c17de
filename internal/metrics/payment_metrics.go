package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// PaymentMetrics интерфейс для метрик платежей и вебхуков
type PaymentMetrics interface {
	IncPaymentCreated(currency string)
	IncTransactionStatus(status string, currency string)
	ObservePaymentAmount(amount float64, currency string)
	IncWebhookReceived()
	IncWebhookAccepted(status string)
	IncWebhookRejected(reason string)
}

type paymentMetrics struct {
	log              *logger.Logger
	paymentsCreated  *prometheus.CounterVec
	transactionsStat *prometheus.CounterVec
	paymentsAmount   *prometheus.HistogramVec
	webhooksReceived prometheus.Counter
	webhooksAccepted *prometheus.CounterVec
	webhooksRejected *prometheus.CounterVec
}

// NewPaymentMetrics создает новые метрики платежей
func NewPaymentMetrics(registry *prometheus.Registry, log *logger.Logger) PaymentMetrics {
	paymentsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "The total number of created payments",
		},
		[]string{"currency"},
	)

	transactionsStat := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_status_total",
			Help: "The total number of transaction status transitions",
		},
		[]string{"status", "currency"},
	)

	paymentsAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_amount",
			Help:    "Payment amounts distribution",
			Buckets: prometheus.ExponentialBuckets(10, 10, 5), // 10, 100, 1000, 10000, 100000
		},
		[]string{"currency"},
	)

	webhooksReceived := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "The total number of received payment webhooks",
		},
	)

	webhooksAccepted := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_accepted_total",
			Help: "The total number of accepted payment webhooks",
		},
		[]string{"status"},
	)

	webhooksRejected := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_rejected_total",
			Help: "The total number of rejected payment webhooks",
		},
		[]string{"reason"},
	)

	return &paymentMetrics{
		log:              log,
		paymentsCreated:  paymentsCreated,
		transactionsStat: transactionsStat,
		paymentsAmount:   paymentsAmount,
		webhooksReceived: webhooksReceived,
		webhooksAccepted: webhooksAccepted,
		webhooksRejected: webhooksRejected,
	}
}

// IncPaymentCreated увеличивает счетчик созданных платежей
func (m *paymentMetrics) IncPaymentCreated(currency string) {
	m.paymentsCreated.WithLabelValues(currency).Inc()
}

// IncTransactionStatus увеличивает счетчик переходов статусов транзакций
func (m *paymentMetrics) IncTransactionStatus(status string, currency string) {
	m.transactionsStat.WithLabelValues(status, currency).Inc()
}

// ObservePaymentAmount записывает сумму платежа
func (m *paymentMetrics) ObservePaymentAmount(amount float64, currency string) {
	m.paymentsAmount.WithLabelValues(currency).Observe(amount)
}

// IncWebhookReceived увеличивает счетчик полученных вебхуков
func (m *paymentMetrics) IncWebhookReceived() {
	m.webhooksReceived.Inc()
}

// IncWebhookAccepted увеличивает счетчик принятых вебхуков
func (m *paymentMetrics) IncWebhookAccepted(status string) {
	m.webhooksAccepted.WithLabelValues(status).Inc()
}

// IncWebhookRejected увеличивает счетчик отклоненных вебхуков
func (m *paymentMetrics) IncWebhookRejected(reason string) {
	m.webhooksRejected.WithLabelValues(reason).Inc()
}

// NewNop возвращает метрики, которые ничего не делают. Используется в тестах.
func NewNop() PaymentMetrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) IncPaymentCreated(string)             {}
func (nopMetrics) IncTransactionStatus(string, string)  {}
func (nopMetrics) ObservePaymentAmount(float64, string) {}
func (nopMetrics) IncWebhookReceived()                  {}
func (nopMetrics) IncWebhookAccepted(string)            {}
func (nopMetrics) IncWebhookRejected(string)            {}
