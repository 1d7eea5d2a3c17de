package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/internal/integration/urlpay"
	"github.com/mrtesla07/3xui-shop/internal/repository"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

type fakeIdentity struct {
	url string
	err error
}

func (f fakeIdentity) RedirectURL(ctx context.Context) (string, error) {
	return f.url, f.err
}

type fakeFormatter struct{}

func (fakeFormatter) InvoiceDescription(devices, duration int) string {
	return "test subscription"
}

type fakeNotifier struct {
	succeeded int
	canceled  int
	lastTgID  int64
}

func (f *fakeNotifier) NotifyPaymentSucceeded(ctx context.Context, tgID int64, subscription string) {
	f.succeeded++
	f.lastTgID = tgID
}

func (f *fakeNotifier) NotifyPaymentCanceled(ctx context.Context, tgID int64) {
	f.canceled++
	f.lastTgID = tgID
}

var testCreds = Credentials{APIKey: "key", ShopID: "shop123", SecretKey: "secret"}

func newTestGateway(repo repository.TransactionRepository, api *fakeAPI, notifier *fakeNotifier) *GatewayService {
	return NewGatewayService(
		testCreds,
		api,
		repo,
		fakeIdentity{url: "https://t.me/testbot"},
		fakeFormatter{},
		notifier,
		nil,
		nil,
		logger.Nop(),
	)
}

func TestGatewayService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	data := domain.SubscriptionData{UserID: 42, Devices: 1, Duration: 30, Price: 199}

	t.Run("creates payment and persists transaction", func(t *testing.T) {
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())

		var gotPayload urlpay.PaymentRequest
		api := &fakeAPI{createFn: func(ctx context.Context, payload urlpay.PaymentRequest) (string, string, error) {
			gotPayload = payload
			return "101", "https://urlpay.io/pay/101", nil
		}}

		svc := newTestGateway(repo, api, nil)

		paymentURL, err := svc.CreatePayment(ctx, data)
		require.NoError(t, err)
		require.Equal(t, "https://urlpay.io/pay/101", paymentURL)

		require.Equal(t, "rub", gotPayload.Currency)
		require.Equal(t, "199.00", gotPayload.Amount)
		require.Equal(t, "shop123", gotPayload.ShopID)
		require.NotEmpty(t, gotPayload.UUID)
		require.Equal(t, urlpay.Sign("RUB", "199.00", "shop123", "secret"), gotPayload.Sign)
		require.Len(t, gotPayload.Items, 1)
		require.Equal(t, "199.00", gotPayload.Items[0].Price)

		tx, err := repo.GetByPaymentID(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, gotPayload.UUID, tx.PaymentUUID)
		require.Equal(t, int64(42), tx.TgID)
		require.Equal(t, "devices=1:duration=30", tx.Subscription)
		require.Equal(t, domain.TransactionStatusPending, tx.Status)
	})

	t.Run("blank credentials fail before any provider call", func(t *testing.T) {
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())
		api := &fakeAPI{}

		svc := NewGatewayService(
			Credentials{APIKey: "key", ShopID: "shop123"}, // SecretKey отсутствует
			api, repo, fakeIdentity{url: "https://t.me/testbot"}, fakeFormatter{},
			nil, nil, nil, logger.Nop(),
		)

		_, err := svc.CreatePayment(ctx, data)
		require.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
		require.Zero(t, api.createCalls)

		_, err = repo.GetByPaymentID(ctx, "101")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("provider error leaves no transaction behind", func(t *testing.T) {
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())
		api := &fakeAPI{createFn: func(ctx context.Context, payload urlpay.PaymentRequest) (string, string, error) {
			return "", "", &domain.ProviderError{StatusCode: 500, Body: "oops"}
		}}

		svc := newTestGateway(repo, api, nil)

		_, err := svc.CreatePayment(ctx, data)
		var provErr *domain.ProviderError
		require.True(t, errors.As(err, &provErr))

		_, err = repo.GetByPaymentID(ctx, "101")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("redirect url failure aborts creation", func(t *testing.T) {
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())
		api := &fakeAPI{}

		svc := NewGatewayService(
			testCreds, api, repo,
			fakeIdentity{err: errors.New("bot unavailable")},
			fakeFormatter{}, nil, nil, nil, logger.Nop(),
		)

		_, err := svc.CreatePayment(ctx, data)
		require.Error(t, err)
		require.Zero(t, api.createCalls)
	})
}

func TestGatewayService_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*repository.InMemoryTransactionRepository, *fakeNotifier) {
		t.Helper()
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())
		seedTransaction(t, repo, "101", "uuid-1")
		return repo, &fakeNotifier{}
	}

	successBody := []byte(`{"payment_status":"success","id":"101","uuid":"uuid-1"}`)

	t.Run("confirmed success transitions and notifies once", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 3)}
		svc := newTestGateway(repo, api, notifier)

		require.NoError(t, svc.HandleWebhook(ctx, successBody))

		tx, err := repo.GetByPaymentID(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusSucceeded, tx.Status)
		require.Equal(t, 1, notifier.succeeded)
		require.Equal(t, int64(42), notifier.lastTgID)
	})

	t.Run("redelivery of an accepted webhook is idempotent", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 3)}
		svc := newTestGateway(repo, api, notifier)

		require.NoError(t, svc.HandleWebhook(ctx, successBody))
		require.NoError(t, svc.HandleWebhook(ctx, successBody))

		// Хук вызывается ровно один раз, повтор является no-op.
		require.Equal(t, 1, notifier.succeeded)
	})

	t.Run("confirmed cancel transitions to canceled", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 5)}
		svc := newTestGateway(repo, api, notifier)

		body := []byte(`{"payment_status":"cancel","id":"101","uuid":"uuid-1"}`)
		require.NoError(t, svc.HandleWebhook(ctx, body))

		tx, err := repo.GetByPaymentID(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusCanceled, tx.Status)
		require.Equal(t, 1, notifier.canceled)
	})

	t.Run("numeric id in payload matches stored payment", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 3)}
		svc := newTestGateway(repo, api, notifier)

		body := []byte(`{"payment_status":"success","id":101,"uuid":"uuid-1"}`)
		require.NoError(t, svc.HandleWebhook(ctx, body))

		tx, err := repo.GetByPaymentID(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusSucceeded, tx.Status)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		repo, notifier := seed(t)
		svc := newTestGateway(repo, &fakeAPI{}, notifier)

		err := svc.HandleWebhook(ctx, []byte(`not json`))
		require.ErrorIs(t, err, ErrMalformedPayload)
		require.Zero(t, notifier.succeeded)
	})

	t.Run("unsupported status is rejected without reconciliation", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 3)}
		svc := newTestGateway(repo, api, notifier)

		body := []byte(`{"payment_status":"refund","id":"101","uuid":"uuid-1"}`)
		err := svc.HandleWebhook(ctx, body)
		require.ErrorIs(t, err, ErrUnsupportedStatus)
		require.Zero(t, api.fetchCalls)
	})

	t.Run("status mismatch leaves transaction pending", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: fetchReturning("uuid-1", 1)}
		svc := newTestGateway(repo, api, notifier)

		err := svc.HandleWebhook(ctx, successBody)
		require.ErrorIs(t, err, ErrStatusMismatch)

		tx, err := repo.GetByPaymentID(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusPending, tx.Status)
		require.Zero(t, notifier.succeeded)
	})

	t.Run("unknown payment id is rejected", func(t *testing.T) {
		repo := repository.NewInMemoryTransactionRepository(logger.Nop())
		svc := newTestGateway(repo, &fakeAPI{}, &fakeNotifier{})

		err := svc.HandleWebhook(ctx, successBody)
		require.ErrorIs(t, err, ErrUnknownPayment)
	})

	t.Run("unconfirmed payment is rejected", func(t *testing.T) {
		repo, notifier := seed(t)
		api := &fakeAPI{fetchFn: func(ctx context.Context, paymentID string) (*urlpay.Payment, error) {
			return nil, errors.New("timeout")
		}}
		svc := newTestGateway(repo, api, notifier)

		err := svc.HandleWebhook(ctx, successBody)
		require.ErrorIs(t, err, ErrPaymentUnconfirmed)
	})
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{199, "199.00"},
		{10, "10.00"},
		{10.5, "10.50"},
		{10.005, "10.01"},
		{0.1, "0.10"},
		{1234.567, "1234.57"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, formatAmount(tc.price), "price %v", tc.price)
	}
}
