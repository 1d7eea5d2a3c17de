package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// TransactionRepository интерфейс для работы с транзакциями
type TransactionRepository interface {
	GetByPaymentID(ctx context.Context, paymentID string) (domain.Transaction, error)
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	// BindPaymentUUID sets the correlation key for a transaction that does
	// not have one yet. Returns false when the transaction already carries
	// a uuid (another delivery won the bind) or does not exist.
	BindPaymentUUID(ctx context.Context, paymentID, paymentUUID string) (bool, error)
	UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus) error
}

// InMemoryTransactionRepository реализация репозитория транзакций в памяти
type InMemoryTransactionRepository struct {
	transactions map[string]domain.Transaction
	uuids        map[string]string // payment_uuid -> payment_id, enforces uniqueness
	mutex        sync.RWMutex
	log          *logger.Logger
}

// NewInMemoryTransactionRepository создает новый репозиторий транзакций в памяти
func NewInMemoryTransactionRepository(log *logger.Logger) *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{
		transactions: make(map[string]domain.Transaction),
		uuids:        make(map[string]string),
		log:          log,
	}
}

// GetByPaymentID возвращает транзакцию по идентификатору платежа
func (r *InMemoryTransactionRepository) GetByPaymentID(ctx context.Context, paymentID string) (domain.Transaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	tx, exists := r.transactions[paymentID]
	if !exists {
		return domain.Transaction{}, ErrNotFound
	}

	return tx, nil
}

// Create создает новую транзакцию
func (r *InMemoryTransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.transactions[tx.PaymentID]; exists {
		return domain.Transaction{}, ErrDuplicate
	}
	if tx.PaymentUUID != "" {
		if _, taken := r.uuids[tx.PaymentUUID]; taken {
			return domain.Transaction{}, ErrDuplicate
		}
	}

	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()

	r.transactions[tx.PaymentID] = tx
	if tx.PaymentUUID != "" {
		r.uuids[tx.PaymentUUID] = tx.PaymentID
	}

	return tx, nil
}

// BindPaymentUUID привязывает correlation key к транзакции без него
func (r *InMemoryTransactionRepository) BindPaymentUUID(ctx context.Context, paymentID, paymentUUID string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tx, exists := r.transactions[paymentID]
	if !exists {
		return false, ErrNotFound
	}
	if tx.PaymentUUID != "" {
		return false, nil
	}
	if owner, taken := r.uuids[paymentUUID]; taken && owner != paymentID {
		return false, ErrDuplicate
	}

	tx.PaymentUUID = paymentUUID
	tx.UpdatedAt = time.Now()
	r.transactions[paymentID] = tx
	r.uuids[paymentUUID] = paymentID

	return true, nil
}

// UpdateStatus обновляет статус транзакции
func (r *InMemoryTransactionRepository) UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tx, exists := r.transactions[paymentID]
	if !exists {
		return ErrNotFound
	}

	tx.Status = status
	tx.UpdatedAt = time.Now()
	r.transactions[paymentID] = tx

	return nil
}
