package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/internal/integration/urlpay"
	"github.com/mrtesla07/3xui-shop/internal/kafka"
	"github.com/mrtesla07/3xui-shop/internal/metrics"
	"github.com/mrtesla07/3xui-shop/internal/repository"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

const (
	currencyCode = "RUB"

	paymentStatusSuccess = "success"
	paymentStatusCancel  = "cancel"
)

// ProviderAPI интерфейс клиента платежного провайдера
type ProviderAPI interface {
	CreatePayment(ctx context.Context, payload urlpay.PaymentRequest) (string, string, error)
	FetchPayment(ctx context.Context, paymentID string) (*urlpay.Payment, error)
}

// BotIdentity возвращает адрес, на который провайдер вернет пользователя.
type BotIdentity interface {
	RedirectURL(ctx context.Context) (string, error)
}

// DescriptionFormatter форматирует локализованное описание платежа.
type DescriptionFormatter interface {
	InvoiceDescription(devices, duration int) string
}

// Notifier уведомляет пользователя о результате платежа. Может быть nil.
type Notifier interface {
	NotifyPaymentSucceeded(ctx context.Context, tgID int64, subscription string)
	NotifyPaymentCanceled(ctx context.Context, tgID int64)
}

// Credentials учетные данные UrlPay
type Credentials struct {
	APIKey    string
	ShopID    string
	SecretKey string
}

// GatewayService связывает клиента провайдера, хранилище транзакций и
// реконсилиацию вебхуков.
type GatewayService struct {
	creds      Credentials
	api        ProviderAPI
	repo       repository.TransactionRepository
	reconciler *Reconciler
	identity   BotIdentity
	formatter  DescriptionFormatter
	notifier   Notifier      // может быть nil
	producer   kafka.Producer // может быть nil, если Kafka недоступен
	metrics    metrics.PaymentMetrics
	log        *logger.Logger
}

// NewGatewayService конструктор сервиса
func NewGatewayService(
	creds Credentials,
	api ProviderAPI,
	repo repository.TransactionRepository,
	identity BotIdentity,
	formatter DescriptionFormatter,
	notifier Notifier,
	producer kafka.Producer,
	m metrics.PaymentMetrics,
	log *logger.Logger,
) *GatewayService {
	if producer == nil {
		log.Warnw("Kafka producer is nil, event publishing will be skipped")
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &GatewayService{
		creds:      creds,
		api:        api,
		repo:       repo,
		reconciler: NewReconciler(repo, api, log),
		identity:   identity,
		formatter:  formatter,
		notifier:   notifier,
		producer:   producer,
		metrics:    m,
		log:        log,
	}
}

// CreatePayment создает платеж и возвращает ссылку на оплату.
//
// A transaction row is persisted strictly after the provider confirms
// the creation, so a failed call never leaves a dangling PENDING row.
func (s *GatewayService) CreatePayment(ctx context.Context, data domain.SubscriptionData) (string, error) {
	if s.creds.APIKey == "" || s.creds.ShopID == "" || s.creds.SecretKey == "" {
		return "", domain.ErrGatewayNotConfigured
	}

	redirectURL, err := s.identity.RedirectURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve redirect url: %w", err)
	}

	description := s.formatter.InvoiceDescription(data.Devices, data.Duration)
	amount := formatAmount(data.Price)
	orderUUID := uuid.NewString()

	payload := urlpay.PaymentRequest{
		Currency:    strings.ToLower(currencyCode),
		Amount:      amount,
		UUID:        orderUUID,
		ShopID:      s.creds.ShopID,
		Description: description,
		WebsiteURL:  redirectURL,
		Language:    "ru",
		Sign:        urlpay.Sign(currencyCode, amount, s.creds.ShopID, s.creds.SecretKey),
		Items: []urlpay.Item{
			{
				Description:    description,
				Quantity:       1,
				Price:          amount,
				VatCode:        0,
				PaymentSubject: 4,
				PaymentMode:    1,
			},
		},
	}

	paymentID, paymentURL, err := s.api.CreatePayment(ctx, payload)
	if err != nil {
		s.log.Errorw("UrlPay create payment failed", "error", err, "tgID", data.UserID)
		return "", err
	}

	_, err = s.repo.Create(ctx, domain.Transaction{
		PaymentID:    paymentID,
		PaymentUUID:  orderUUID,
		TgID:         data.UserID,
		Subscription: data.Pack(),
		Status:       domain.TransactionStatusPending,
	})
	if err != nil {
		s.log.Errorw("Failed to persist transaction", "error", err, "paymentID", paymentID)
		return "", fmt.Errorf("failed to persist transaction: %w", err)
	}

	s.metrics.IncPaymentCreated(currencyCode)
	s.metrics.ObservePaymentAmount(data.Price, currencyCode)
	s.publishEvent(ctx, paymentID, data.UserID, data.Pack(), domain.TransactionStatusPending)

	s.log.Infow("Payment link created", "tgID", data.UserID, "paymentID", paymentID)
	return paymentURL, nil
}

// HandleWebhook обрабатывает сырое тело вебхука UrlPay.
//
// Every failure maps to a 400 at the HTTP boundary; the parsed status
// from the payload only selects which hook runs after the reconciler
// confirms the transition against the provider.
func (s *GatewayService) HandleWebhook(ctx context.Context, raw []byte) error {
	s.metrics.IncWebhookReceived()

	payload, err := ParseWebhookPayload(raw)
	if err != nil {
		s.metrics.IncWebhookRejected("malformed")
		return err
	}

	if payload.PaymentStatus != paymentStatusSuccess && payload.PaymentStatus != paymentStatusCancel {
		s.log.Warnw("Unsupported UrlPay status", "status", payload.PaymentStatus)
		s.metrics.IncWebhookRejected("unsupported_status")
		return ErrUnsupportedStatus
	}

	paymentID, err := s.reconciler.VerifyCallback(ctx, payload)
	if err != nil {
		s.log.Warnw("UrlPay webhook verification failed", "error", err,
			"paymentID", payload.PaymentID, "uuid", payload.PaymentUUID)
		s.metrics.IncWebhookRejected(rejectionReason(err))
		return err
	}

	if payload.PaymentStatus == paymentStatusSuccess {
		err = s.HandlePaymentSucceeded(ctx, paymentID)
	} else {
		err = s.HandlePaymentCanceled(ctx, paymentID)
	}
	if err != nil {
		s.metrics.IncWebhookRejected("transition_failed")
		return err
	}

	s.metrics.IncWebhookAccepted(payload.PaymentStatus)
	return nil
}

// HandlePaymentSucceeded переводит транзакцию в состояние SUCCEEDED.
// Повторная доставка уже подтвержденного вебхука является no-op.
func (s *GatewayService) HandlePaymentSucceeded(ctx context.Context, paymentID string) error {
	return s.transition(ctx, paymentID, domain.TransactionStatusSucceeded)
}

// HandlePaymentCanceled переводит транзакцию в состояние CANCELED.
func (s *GatewayService) HandlePaymentCanceled(ctx context.Context, paymentID string) error {
	return s.transition(ctx, paymentID, domain.TransactionStatusCanceled)
}

func (s *GatewayService) transition(ctx context.Context, paymentID string, status domain.TransactionStatus) error {
	tx, err := s.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownPayment
		}
		return fmt.Errorf("failed to look up transaction: %w", err)
	}

	if tx.Status == status {
		s.log.Debugw("Transaction already in target status", "paymentID", paymentID, "status", status)
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, paymentID, status); err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	s.metrics.IncTransactionStatus(string(status), currencyCode)
	s.publishEvent(ctx, paymentID, tx.TgID, tx.Subscription, status)

	if s.notifier != nil {
		switch status {
		case domain.TransactionStatusSucceeded:
			s.notifier.NotifyPaymentSucceeded(ctx, tx.TgID, tx.Subscription)
		case domain.TransactionStatusCanceled:
			s.notifier.NotifyPaymentCanceled(ctx, tx.TgID)
		}
	}

	s.log.Infow("Transaction transitioned", "paymentID", paymentID, "status", status)
	return nil
}

func (s *GatewayService) publishEvent(ctx context.Context, paymentID string, tgID int64, subscription string, status domain.TransactionStatus) {
	if s.producer == nil {
		return
	}

	event := kafka.TransactionEvent{
		PaymentID:    paymentID,
		TgID:         tgID,
		Subscription: subscription,
		Status:       string(status),
	}
	if err := s.producer.PublishTransactionEvent(ctx, event); err != nil {
		// Публикация события не критична для основного флоу.
		s.log.Errorw("Failed to publish transaction event", "error", err, "paymentID", paymentID)
	}
}

// formatAmount приводит цену к строке с двумя знаками после запятой.
// Half-up rounding, never scientific notation.
func formatAmount(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrUnsupportedStatus):
		return "unsupported_status"
	case errors.Is(err, ErrUnknownPayment):
		return "unknown_payment"
	case errors.Is(err, ErrUUIDMismatch):
		return "uuid_mismatch"
	case errors.Is(err, ErrPaymentUnconfirmed):
		return "unconfirmed"
	case errors.Is(err, ErrStatusMismatch):
		return "status_mismatch"
	default:
		return "internal"
	}
}
