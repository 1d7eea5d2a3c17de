package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

const (
	transactionKeyPrefix = "transaction:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование транзакций с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheTransaction кеширует транзакцию в Redis
func (r *RedisCacheRepository) CacheTransaction(ctx context.Context, tx *domain.Transaction) error {
	key := fmt.Sprintf("%s%s", transactionKeyPrefix, tx.PaymentID)

	data, err := json.Marshal(tx)
	if err != nil {
		r.log.Errorw("Failed to marshal transaction for caching", "error", err, "paymentID", tx.PaymentID)
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache transaction in Redis", "error", err, "paymentID", tx.PaymentID)
		return fmt.Errorf("failed to cache transaction: %w", err)
	}

	r.log.Debugw("Transaction cached successfully", "paymentID", tx.PaymentID)
	return nil
}

// GetCachedTransaction получает транзакцию из кеша
func (r *RedisCacheRepository) GetCachedTransaction(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	key := fmt.Sprintf("%s%s", transactionKeyPrefix, paymentID)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			// Ключ не найден в кеше
			r.log.Debugw("Transaction not found in cache", "paymentID", paymentID)
			return nil, nil // Возвращаем nil вместо ошибки
		}
		r.log.Errorw("Error getting transaction from Redis", "error", err, "paymentID", paymentID)
		return nil, fmt.Errorf("failed to get transaction from cache: %w", err)
	}

	var tx domain.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		r.log.Errorw("Failed to unmarshal cached transaction", "error", err, "paymentID", paymentID)
		return nil, fmt.Errorf("failed to unmarshal cached transaction: %w", err)
	}

	r.log.Debugw("Transaction retrieved from cache", "paymentID", paymentID)
	return &tx, nil
}

// DeleteCachedTransaction удаляет транзакцию из кеша
func (r *RedisCacheRepository) DeleteCachedTransaction(ctx context.Context, paymentID string) error {
	key := fmt.Sprintf("%s%s", transactionKeyPrefix, paymentID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to delete transaction from cache", "error", err, "paymentID", paymentID)
		return fmt.Errorf("failed to delete transaction from cache: %w", err)
	}

	r.log.Debugw("Transaction deleted from cache", "paymentID", paymentID)
	return nil
}
