package repository

import (
	"context"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// CachedTransactionRepository реализует TransactionRepository с кешированием.
//
// Writes always go to the primary store first and invalidate the cache,
// so the reconciler never observes a stale payment_uuid or status.
type CachedTransactionRepository struct {
	repo  TransactionRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedTransactionRepository создает новый репозиторий с кешированием
func NewCachedTransactionRepository(
	repo TransactionRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) TransactionRepository {
	return &CachedTransactionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetByPaymentID получает транзакцию (сначала из кеша, потом из БД)
func (r *CachedTransactionRepository) GetByPaymentID(ctx context.Context, paymentID string) (domain.Transaction, error) {
	cached, err := r.cache.GetCachedTransaction(ctx, paymentID)
	if err != nil {
		r.log.Warnw("Error getting transaction from cache", "error", err, "paymentID", paymentID)
		// Продолжаем выполнение при ошибке кеша
	}
	if cached != nil {
		return *cached, nil
	}

	tx, err := r.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := r.cache.CacheTransaction(ctx, &tx); err != nil {
		r.log.Warnw("Failed to cache transaction after read", "error", err, "paymentID", paymentID)
	}

	return tx, nil
}

// Create сохраняет транзакцию в БД и кеширует ее
func (r *CachedTransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	created, err := r.repo.Create(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := r.cache.CacheTransaction(ctx, &created); err != nil {
		r.log.Warnw("Failed to cache transaction after creation", "error", err, "paymentID", created.PaymentID)
		// Продолжаем выполнение, несмотря на ошибку кеширования
	}

	return created, nil
}

// BindPaymentUUID привязывает correlation key и инвалидирует кеш
func (r *CachedTransactionRepository) BindPaymentUUID(ctx context.Context, paymentID, paymentUUID string) (bool, error) {
	bound, err := r.repo.BindPaymentUUID(ctx, paymentID, paymentUUID)
	if err != nil {
		return false, err
	}

	if err := r.cache.DeleteCachedTransaction(ctx, paymentID); err != nil {
		r.log.Warnw("Failed to invalidate transaction cache after bind", "error", err, "paymentID", paymentID)
	}

	return bound, nil
}

// UpdateStatus обновляет статус и инвалидирует кеш
func (r *CachedTransactionRepository) UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus) error {
	if err := r.repo.UpdateStatus(ctx, paymentID, status); err != nil {
		return err
	}

	if err := r.cache.DeleteCachedTransaction(ctx, paymentID); err != nil {
		r.log.Warnw("Failed to invalidate transaction cache after status update", "error", err, "paymentID", paymentID)
	}

	return nil
}
