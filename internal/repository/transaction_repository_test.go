package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

func TestInMemoryTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get by payment id", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		created, err := repo.Create(ctx, domain.Transaction{
			PaymentID:    "pay-1",
			PaymentUUID:  "uuid-1",
			TgID:         42,
			Subscription: "devices=1:duration=30",
			Status:       domain.TransactionStatusPending,
		})
		require.NoError(t, err)
		require.False(t, created.CreatedAt.IsZero())

		got, err := repo.GetByPaymentID(ctx, "pay-1")
		require.NoError(t, err)
		require.Equal(t, "uuid-1", got.PaymentUUID)
		require.Equal(t, domain.TransactionStatusPending, got.Status)
	})

	t.Run("duplicate payment id is rejected", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.Create(ctx, domain.Transaction{PaymentID: "pay-1"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, domain.Transaction{PaymentID: "pay-1"})
		require.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("duplicate payment uuid is rejected", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.Create(ctx, domain.Transaction{PaymentID: "pay-1", PaymentUUID: "uuid-1"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, domain.Transaction{PaymentID: "pay-2", PaymentUUID: "uuid-1"})
		require.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("unknown payment id returns ErrNotFound", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.GetByPaymentID(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryTransactionRepository_BindPaymentUUID(t *testing.T) {
	ctx := context.Background()

	t.Run("first bind wins, second is a no-op", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.Create(ctx, domain.Transaction{PaymentID: "pay-1", Status: domain.TransactionStatusPending})
		require.NoError(t, err)

		bound, err := repo.BindPaymentUUID(ctx, "pay-1", "uuid-1")
		require.NoError(t, err)
		require.True(t, bound)

		// Вторая доставка проигрывает гонку привязки.
		bound, err = repo.BindPaymentUUID(ctx, "pay-1", "uuid-2")
		require.NoError(t, err)
		require.False(t, bound)

		got, err := repo.GetByPaymentID(ctx, "pay-1")
		require.NoError(t, err)
		require.Equal(t, "uuid-1", got.PaymentUUID)
	})

	t.Run("bind to unknown payment returns ErrNotFound", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.BindPaymentUUID(ctx, "missing", "uuid-1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bind with uuid of another payment returns ErrDuplicate", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.Create(ctx, domain.Transaction{PaymentID: "pay-1", PaymentUUID: "uuid-1"})
		require.NoError(t, err)
		_, err = repo.Create(ctx, domain.Transaction{PaymentID: "pay-2"})
		require.NoError(t, err)

		_, err = repo.BindPaymentUUID(ctx, "pay-2", "uuid-1")
		require.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestInMemoryTransactionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates status", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		_, err := repo.Create(ctx, domain.Transaction{PaymentID: "pay-1", Status: domain.TransactionStatusPending})
		require.NoError(t, err)

		err = repo.UpdateStatus(ctx, "pay-1", domain.TransactionStatusSucceeded)
		require.NoError(t, err)

		got, err := repo.GetByPaymentID(ctx, "pay-1")
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusSucceeded, got.Status)
	})

	t.Run("unknown payment returns ErrNotFound", func(t *testing.T) {
		repo := NewInMemoryTransactionRepository(logger.Nop())

		err := repo.UpdateStatus(ctx, "missing", domain.TransactionStatusSucceeded)
		require.ErrorIs(t, err, ErrNotFound)
	})
}
