package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/internal/repository"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

const uniqueViolationCode = "23505"

// TransactionRepository реализация репозитория транзакций через PostgreSQL
type TransactionRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewTransactionRepository создает новый репозиторий транзакций через PostgreSQL
func NewTransactionRepository(db *sqlx.DB, log *logger.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log,
	}
}

// GetByPaymentID возвращает транзакцию по идентификатору платежа
func (r *TransactionRepository) GetByPaymentID(ctx context.Context, paymentID string) (domain.Transaction, error) {
	query := `
		SELECT payment_id, COALESCE(payment_uuid, '') AS payment_uuid, tg_id, subscription, status, created_at, updated_at
		FROM transactions
		WHERE payment_id = $1
	`

	var tx domain.Transaction
	err := r.db.GetContext(ctx, &tx, query, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, repository.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// Create создает новую транзакцию
func (r *TransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	query := `
		INSERT INTO transactions (payment_id, payment_uuid, tg_id, subscription, status, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		tx.PaymentID, tx.PaymentUUID, tx.TgID, tx.Subscription, tx.Status,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.Transaction{}, repository.ErrDuplicate
		}
		return domain.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	return tx, nil
}

// BindPaymentUUID привязывает correlation key к транзакции без него.
//
// The update is conditional on payment_uuid being NULL, so under two
// concurrent webhook deliveries only the first writer succeeds; the
// caller falls back to re-read and verify when zero rows are affected.
func (r *TransactionRepository) BindPaymentUUID(ctx context.Context, paymentID, paymentUUID string) (bool, error) {
	query := `
		UPDATE transactions
		SET payment_uuid = $2, updated_at = NOW()
		WHERE payment_id = $1 AND payment_uuid IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, paymentID, paymentUUID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return false, repository.ErrDuplicate
		}
		return false, fmt.Errorf("failed to bind payment uuid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows count: %w", err)
	}

	return affected > 0, nil
}

// UpdateStatus обновляет статус транзакции
func (r *TransactionRepository) UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE payment_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, paymentID, status)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
