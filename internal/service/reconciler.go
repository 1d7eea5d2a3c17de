package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mrtesla07/3xui-shop/internal/integration/urlpay"
	"github.com/mrtesla07/3xui-shop/internal/repository"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// Ошибки верификации вебхука. Никогда не покидают HTTP-границу:
// обработчик превращает любую из них в ответ 400.
var (
	ErrMalformedPayload   = errors.New("malformed webhook payload")
	ErrUnsupportedStatus  = errors.New("unsupported payment status")
	ErrUnknownPayment     = errors.New("unknown payment")
	ErrUUIDMismatch       = errors.New("payment uuid mismatch")
	ErrPaymentUnconfirmed = errors.New("payment could not be confirmed")
	ErrStatusMismatch     = errors.New("payment status mismatch")
)

// expectedProviderStatuses maps the transition claimed by the webhook to
// the authoritative numeric codes that must appear on a fresh fetch.
var expectedProviderStatuses = map[string][]int{
	paymentStatusSuccess: {3},
	paymentStatusCancel:  {4, 5, 6},
}

// WebhookPayload распарсенное тело вебхука UrlPay
type WebhookPayload struct {
	PaymentStatus string
	PaymentID     string
	PaymentUUID   string
}

// ParseWebhookPayload декодирует сырое тело вебхука.
//
// The provider sends id either as a JSON string or as a number, so the
// decoder runs with UseNumber and the id is normalized to a string.
func ParseWebhookPayload(raw []byte) (WebhookPayload, error) {
	var body struct {
		PaymentStatus string `json:"payment_status"`
		ID            any    `json:"id"`
		UUID          string `json:"uuid"`
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return WebhookPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	payload := WebhookPayload{
		PaymentStatus: strings.ToLower(body.PaymentStatus),
		PaymentUUID:   body.UUID,
	}
	if body.ID != nil {
		payload.PaymentID = fmt.Sprint(body.ID)
	}

	return payload, nil
}

// PaymentFetcher авторитетный источник состояния платежа
type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*urlpay.Payment, error)
}

// Reconciler сверяет входящий вебхук с локальным и провайдерским состоянием.
//
// The webhook body is network-controllable; the fresh fetch through the
// credentialed API is not. The reconciler never authorizes a transition
// on push data alone.
type Reconciler struct {
	repo repository.TransactionRepository
	api  PaymentFetcher
	log  *logger.Logger
}

// NewReconciler создает новый Reconciler
func NewReconciler(repo repository.TransactionRepository, api PaymentFetcher, log *logger.Logger) *Reconciler {
	return &Reconciler{
		repo: repo,
		api:  api,
		log:  log,
	}
}

// VerifyCallback проверяет вебхук и возвращает подтвержденный payment_id.
func (r *Reconciler) VerifyCallback(ctx context.Context, payload WebhookPayload) (string, error) {
	if payload.PaymentID == "" {
		r.log.Warnw("UrlPay callback payload does not contain payment id")
		return "", ErrMalformedPayload
	}
	if payload.PaymentUUID == "" {
		r.log.Warnw("UrlPay callback payload does not contain uuid", "paymentID", payload.PaymentID)
		return "", ErrMalformedPayload
	}

	expected, ok := expectedProviderStatuses[payload.PaymentStatus]
	if !ok {
		r.log.Warnw("Unsupported UrlPay status", "status", payload.PaymentStatus)
		return "", ErrUnsupportedStatus
	}

	tx, err := r.repo.GetByPaymentID(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.log.Warnw("UrlPay callback received for unknown payment id", "paymentID", payload.PaymentID)
			return "", ErrUnknownPayment
		}
		return "", fmt.Errorf("failed to look up transaction: %w", err)
	}

	boundUUID, err := r.bindOrVerifyUUID(ctx, tx.PaymentID, tx.PaymentUUID, payload.PaymentUUID)
	if err != nil {
		return "", err
	}

	payment, err := r.api.FetchPayment(ctx, payload.PaymentID)
	if err != nil || payment == nil {
		r.log.Warnw("UrlPay payment could not be confirmed", "paymentID", payload.PaymentID, "error", err)
		return "", ErrPaymentUnconfirmed
	}

	// The uuid from the fresh fetch is a consistency signal only; the
	// status code below is what actually decides acceptance.
	apiUUID := payment.UUID
	if apiUUID != "" && apiUUID != payload.PaymentUUID {
		r.log.Warnw("UrlPay callback uuid mismatch with API",
			"payload", payload.PaymentUUID, "api", apiUUID, "paymentID", payload.PaymentID)
	}
	if apiUUID != "" && boundUUID != "" && apiUUID != boundUUID {
		r.log.Warnw("UrlPay uuid mismatch between database and API",
			"db", boundUUID, "api", apiUUID, "paymentID", payload.PaymentID)
	}

	if !containsStatus(expected, payment.Status) {
		r.log.Warnw("UrlPay callback status mismatch",
			"payload", payload.PaymentStatus, "apiStatus", payment.Status, "paymentID", payload.PaymentID)
		return "", ErrStatusMismatch
	}

	return payload.PaymentID, nil
}

// bindOrVerifyUUID adopts the payload uuid when the transaction has none
// yet, or verifies it otherwise. The bind is an atomic conditional
// update; when another delivery wins the race, this one falls back to
// re-reading and verifying.
func (r *Reconciler) bindOrVerifyUUID(ctx context.Context, paymentID, storedUUID, payloadUUID string) (string, error) {
	if storedUUID != "" {
		if storedUUID != payloadUUID {
			r.log.Warnw("UrlPay callback uuid mismatch with database",
				"payload", payloadUUID, "db", storedUUID, "paymentID", paymentID)
			return "", ErrUUIDMismatch
		}
		return storedUUID, nil
	}

	bound, err := r.repo.BindPaymentUUID(ctx, paymentID, payloadUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnknownPayment
		}
		if errors.Is(err, repository.ErrDuplicate) {
			r.log.Warnw("UrlPay callback uuid already bound to another payment",
				"uuid", payloadUUID, "paymentID", paymentID)
			return "", ErrUUIDMismatch
		}
		return "", fmt.Errorf("failed to bind payment uuid: %w", err)
	}
	if bound {
		return payloadUUID, nil
	}

	// Lost the race: another delivery bound a uuid first.
	tx, err := r.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return "", fmt.Errorf("failed to re-read transaction after bind: %w", err)
	}
	if tx.PaymentUUID != payloadUUID {
		r.log.Warnw("UrlPay callback uuid mismatch with database",
			"payload", payloadUUID, "db", tx.PaymentUUID, "paymentID", paymentID)
		return "", ErrUUIDMismatch
	}

	return tx.PaymentUUID, nil
}

func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
